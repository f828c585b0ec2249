package stage

import "errors"

// Linking errors. They are returned at wiring time and the consumer is
// never adopted.
var (
	// ErrIncompatibleFormat is returned when a consumer's input format does
	// not equal the format the producer's output slot emits, or when the
	// consumer accepts no input at all.
	ErrIncompatibleFormat = errors.New("incompatible format")

	// ErrIncompatibleRole is returned when a consumer's role differs from
	// the role the producer's output slot expects.
	ErrIncompatibleRole = errors.New("incompatible role")
)

// Conduit errors.
var (
	// ErrReceiveFailed is returned when the worker on the other end of an
	// acknowledgement conduit exited without reporting WorkerFinished.
	ErrReceiveFailed = errors.New("receive failed: worker exited without finishing")

	// ErrNoParent is returned when a stage acknowledges before a parent
	// handle was adopted.
	ErrNoParent = errors.New("no parent adopted")

	// ErrUnexpectedDatagram is returned when a stage receives a datagram
	// it has no use for, such as data sent to a pipeline head.
	ErrUnexpectedDatagram = errors.New("unexpected datagram")
)
