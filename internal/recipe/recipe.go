package recipe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Recipe is a declarative pipeline.
type Recipe struct {
	// Name labels the pipeline in logs, reports and the capture store.
	Name string `yaml:"name"`

	// Steps limits the run. Zero runs until the head is exhausted.
	Steps int `yaml:"steps,omitempty"`

	// Head is the first stage.
	Head *Node `yaml:"head"`
}

// Node is one stage of a recipe.
type Node struct {
	// Kind selects the factory from the registry.
	Kind string `yaml:"kind"`

	// Name is an optional label used in error messages.
	Name string `yaml:"name,omitempty"`

	// With holds stage options.
	With Options `yaml:"with,omitempty"`

	// Sink is the consumer of a single-output stage.
	Sink *Node `yaml:"sink,omitempty"`

	// Outputs maps slot names to consumers for fan-out stages.
	Outputs map[string]*Node `yaml:"outputs,omitempty"`
}

// label returns the name used for the node in error paths.
func (n *Node) label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Kind
}

// Parse decodes and validates a recipe document.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Load reads and parses the recipe at path. It returns ErrRecipeNotFound
// when the file does not exist.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided recipe path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, path)
		}
		return nil, err
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Validate checks the recipe structure. It does not look up kinds.
func (r *Recipe) Validate() error {
	if r.Name == "" {
		return ErrNoName
	}
	if r.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative", ErrInvalidOption)
	}
	if r.Head == nil {
		return ErrNoHead
	}
	return r.Head.validate("head")
}

func (n *Node) validate(path string) error {
	if n.Kind == "" {
		return fmt.Errorf("%s: %w", path, ErrNoKind)
	}
	path = path + "/" + n.label()
	if n.Sink != nil && len(n.Outputs) > 0 {
		return fmt.Errorf("%s: %w", path, ErrSinkAndOutputs)
	}
	if n.Sink != nil {
		if err := n.Sink.validate(path); err != nil {
			return err
		}
	}
	for slot, child := range n.Outputs {
		if child == nil {
			return fmt.Errorf("%s[%s]: %w", path, slot, ErrNoKind)
		}
		if err := child.validate(path + "[" + slot + "]"); err != nil {
			return err
		}
	}
	return nil
}
