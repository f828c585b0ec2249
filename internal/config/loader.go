package config

import (
	"os"
	"path/filepath"
)

// DefaultRecipeFile is the recipe file name searched for when no recipe is
// given on the command line.
const DefaultRecipeFile = "streamcraft.yaml"

// FindRecipeFile searches for a recipe file in the following order:
// 1. If recipePath is specified, use it directly
// 2. Look for streamcraft.yaml in the current directory
// 3. Look for streamcraft.yaml in the XDG config directory
//
// Returns the path to the recipe file if found, or empty string if not found.
func FindRecipeFile(recipePath string) string {
	if recipePath != "" {
		if _, err := os.Stat(recipePath); err == nil {
			return recipePath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		if p := filepath.Join(cwd, DefaultRecipeFile); exists(p) {
			return p
		}
	}

	if p := filepath.Join(XDGConfigDir(), DefaultRecipeFile); exists(p) {
		return p
	}

	return ""
}

// ResolveRecipes returns c.Recipes, or the recipe FindRecipeFile locates
// when none were given. Explicit paths are returned unchanged so that a
// missing file is reported by the loader.
func (c *Config) ResolveRecipes() []string {
	if len(c.Recipes) > 0 {
		return c.Recipes
	}
	if p := FindRecipeFile(""); p != "" {
		return []string{p}
	}
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
