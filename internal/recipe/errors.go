package recipe

import "errors"

var (
	// ErrRecipeNotFound is returned when the recipe file does not exist.
	ErrRecipeNotFound = errors.New("recipe file not found")

	// ErrNoName is returned for a recipe without a name.
	ErrNoName = errors.New("recipe has no name")

	// ErrNoHead is returned for a recipe without a head node.
	ErrNoHead = errors.New("recipe has no head stage")

	// ErrNoKind is returned for a node without a kind.
	ErrNoKind = errors.New("stage has no kind")

	// ErrUnknownKind is returned when no factory is registered for a kind.
	ErrUnknownKind = errors.New("unknown stage kind")

	// ErrDuplicateKind is returned when a kind is registered twice.
	ErrDuplicateKind = errors.New("stage kind already registered")

	// ErrSinkAndOutputs is returned for a node that sets both sink and
	// outputs.
	ErrSinkAndOutputs = errors.New("stage sets both sink and outputs")

	// ErrNotProducer is returned when a node lists consumers but its stage
	// has no outputs.
	ErrNotProducer = errors.New("stage has no outputs")

	// ErrMissingConsumer is returned when a producer node lists no
	// consumers.
	ErrMissingConsumer = errors.New("stage output is not linked")

	// ErrInvalidOption is returned when a with option has the wrong type
	// or value.
	ErrInvalidOption = errors.New("invalid stage option")

	// ErrNoStore is returned when a store stage is built without a capture
	// store.
	ErrNoStore = errors.New("no capture store configured")

	// ErrNoBackend is returned when a media stage is built without an av
	// backend.
	ErrNoBackend = errors.New("no media backend configured")
)
