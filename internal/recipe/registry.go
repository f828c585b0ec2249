package recipe

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/elements/store"
	"github.com/nao1215/streamcraft/internal/stage"
)

// Env supplies the resources factories may need.
type Env struct {
	// Out receives console output. Nil means standard output.
	Out io.Writer

	// Store receives captures from store stages.
	Store store.Writer

	// Backend opens media inputs for demux and decoder stages.
	Backend av.Backend

	// Logger is used for pipeline logs. Nil means the process logger.
	Logger *slog.Logger

	// Label tags captures from store stages that set no label of their
	// own. Build defaults it to the recipe name.
	Label string

	// RunID is the ID of the pipeline being built. Build sets it; store
	// stages tag their captures with it.
	RunID string
}

// Factory creates the stage for one node. Factories must not link
// consumers; Build does that.
type Factory func(n *Node, env Env) (stage.Stage, error)

// Registry maps stage kinds to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for kind.
func (r *Registry) Register(kind string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.factories[kind] = f
	return nil
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[kind]
	return f, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
