package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/streamcraft/internal/config"
)

//go:embed templates/recipe.yaml
var recipeTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample recipe file",
		Long: `Init writes a sample recipe to streamcraft.yaml in the current directory.

The sample runs a text source through a case converter to the console and
lists the other stage kinds with their options.

Examples:
  # Create streamcraft.yaml in current directory
  streamcraft init

  # Create the recipe at a specific path
  streamcraft init -o recipes/hello.yaml

  # Force overwrite existing file
  streamcraft init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultRecipeFile,
		"Output file path for the recipe")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing recipe file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("recipe file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := recipeTemplate.ReadFile("templates/recipe.yaml")
	if err != nil {
		return fmt.Errorf("failed to read recipe template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created recipe file: %s\n", outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Run it with: streamcraft run %s\n", outputPath)

	return nil
}
