package pipeline

import "errors"

// Lifecycle errors. They indicate misuse and are never retried.
var (
	// ErrNoStageAdopted is returned when a runner has no stage to take or
	// spawn.
	ErrNoStageAdopted = errors.New("no stage adopted")

	// ErrAlreadyAdopted is returned when a stage is adopted into a runner
	// that already holds one. Take the first stage out before adopting
	// another.
	ErrAlreadyAdopted = errors.New("stage already adopted")

	// ErrAlreadyRunning is returned when a runner or pipeline is asked to
	// start, or to adopt, after its worker was spawned.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotReady is returned when an operation needs a spawned worker, or
	// when a pipeline is stepped before Init or after Teardown.
	ErrNotReady = errors.New("pipeline is not ready")

	// ErrUnknownSlot is returned when linking into an output slot the
	// producer does not declare.
	ErrUnknownSlot = errors.New("unknown output slot")
)

// ErrSendFailed is returned when a datagram is sent to a worker that has
// already exited.
var ErrSendFailed = errors.New("send failed: worker exited")

// ErrConsumerFailed wraps the failure of a consumer stage when its producer
// releases it, so the failure travels up the chain to the pipeline.
var ErrConsumerFailed = errors.New("consumer failed")
