package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/stage"
)

// State is the lifecycle state of a Runner.
type State int

const (
	// StateEmpty holds no stage.
	StateEmpty State = iota
	// StateAdopted holds a stage that has not been spawned.
	StateAdopted
	// StateRunning has a live worker.
	StateRunning
	// StateDraining has closed the downstream conduit and is joining the
	// worker.
	StateDraining
	// StateClosed has joined its worker or released its unspawned stage.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAdopted:
		return "adopted"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// errStagePanicked marks a worker whose stage panicked.
var errStagePanicked = errors.New("stage panicked")

// Runner owns one adopted stage, the worker goroutine executing it, the
// sending end of the downstream conduit and the receiving end of the
// acknowledgement conduit.
//
// A Runner is used by a single owner goroutine. The zero value is an empty
// runner ready to adopt a stage.
//
// Design decision: every stage gets its own worker goroutine fed by an
// unbuffered channel. A send completes only when the consumer has taken the
// datagram, so a slow consumer blocks only its own producer and no payload
// waits in a queue when the pipeline is torn down.
type Runner struct {
	state State
	stage stage.Stage
	name  string

	out    chan stage.Datagram
	acks   *stage.Acks
	done   chan struct{}
	result *workerResult
}

// workerResult is written by the worker before it signals done and read by
// the owner only after done is closed.
type workerResult struct {
	err error
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Stage returns the adopted stage, or nil when nothing is adopted or the
// stage was moved into a worker.
func (r *Runner) Stage() stage.Stage {
	return r.stage
}

// Adopt takes ownership of s. Adopting into a runner that already holds a
// stage fails with ErrAlreadyAdopted.
//
// Design decision: a second Adopt fails instead of replacing the stage. The
// held stage may already be linked to consumers, and silently dropping it
// would leave them without a producer and never released. Callers that
// want to swap stages call Take first.
func (r *Runner) Adopt(s stage.Stage) error {
	switch r.state {
	case StateEmpty:
		r.stage = s
		r.name = s.Name()
		r.state = StateAdopted
		return nil
	case StateAdopted:
		return fmt.Errorf("%w: %s holds %s", ErrAlreadyAdopted, r.name, s.Name())
	default:
		return fmt.Errorf("%w: runner is %s", ErrAlreadyRunning, r.state)
	}
}

// Take removes the adopted stage and returns it.
func (r *Runner) Take() (stage.Stage, error) {
	if r.state != StateAdopted {
		return nil, fmt.Errorf("%w: runner is %s", ErrNoStageAdopted, r.state)
	}
	s := r.stage
	r.stage = nil
	r.state = StateEmpty
	return s, nil
}

// Ready checks that a stage is adopted and, for producers, that every
// output slot further down is linked.
func (r *Runner) Ready() error {
	switch r.state {
	case StateAdopted:
		if p, ok := r.stage.(stage.Producer); ok {
			return p.Ready()
		}
		return nil
	case StateRunning:
		return nil
	default:
		return fmt.Errorf("%w: runner is %s", ErrNoStageAdopted, r.state)
	}
}

// Spawn creates both conduits, hands the adopted stage and the receiving
// end of the downstream conduit to a new worker goroutine, and keeps the
// other two ends.
func (r *Runner) Spawn() error {
	if r.state == StateRunning || r.state == StateDraining {
		return ErrAlreadyRunning
	}
	s, err := r.Take()
	if err != nil {
		return err
	}

	out := make(chan stage.Datagram)
	parent, acks := stage.NewUpstream()
	s.AdoptParent(parent)
	done := make(chan struct{})
	result := &workerResult{}

	go work(s, out, parent, done, result)

	r.out = out
	r.acks = acks
	r.done = done
	r.result = result
	r.state = StateRunning
	return nil
}

// work is the body of every worker goroutine. Failures of the stage, and
// failures its consumers reported while it released them, are left in
// result for the owner to read once done is closed.
func work(s stage.Stage, in <-chan stage.Datagram, parent stage.Parent, done chan<- struct{}, result *workerResult) {
	defer close(done)
	defer parent.Close()

	logger := log.Named(s.Name())
	logger.Debug("worker started")

	if err := execute(s, in); err != nil {
		result.err = err
		if errors.Is(err, errStagePanicked) {
			logger.Error("worker aborted", "error", err)
			if err := release(s); err != nil {
				logger.Error("release failed", "error", err)
				result.err = errors.Join(result.err, err)
			}
			return
		}
		logger.Error("stage failed", "error", err)
	}

	if err := release(s); err != nil {
		result.err = errors.Join(result.err, err)
		if errors.Is(err, ErrConsumerFailed) {
			// The consumer logged its own failure.
			logger.Debug("consumer failure forwarded", "error", err)
		} else {
			logger.Error("release failed", "error", err)
		}
	}
	if err := parent.Finished(); err != nil {
		logger.Warn("could not report worker finished", "error", err)
	}
	logger.Debug("worker finished")
}

func execute(s stage.Stage, in <-chan stage.Datagram) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", errStagePanicked, v)
		}
	}()
	return s.Execute(in)
}

func release(s stage.Stage) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w during release: %v", errStagePanicked, v)
		}
	}()
	return s.Release()
}

// SendControl writes a control message downstream. It returns once the
// worker has received it.
func (r *Runner) SendControl(m stage.Message) error {
	return r.send(stage.Control(m))
}

// SendData writes a payload downstream. It returns once the worker has
// received it.
func (r *Runner) SendData(p stage.Payload) error {
	return r.send(stage.Data(p))
}

func (r *Runner) send(d stage.Datagram) error {
	if r.state != StateRunning {
		return fmt.Errorf("%w: runner is %s", ErrNotReady, r.state)
	}
	select {
	case r.out <- d:
		return nil
	case <-r.done:
		return fmt.Errorf("%w: %s", ErrSendFailed, r.name)
	}
}

// AwaitAck blocks until the worker acknowledges. It fails with
// stage.ErrReceiveFailed if the worker exited without reporting
// WorkerFinished.
func (r *Runner) AwaitAck() (stage.Message, error) {
	if r.acks == nil {
		return 0, fmt.Errorf("%w: runner is %s", ErrNotReady, r.state)
	}
	return r.acks.Recv()
}

// TryPollAck is the non-blocking form of AwaitAck. It returns false when no
// acknowledgement is pending.
func (r *Runner) TryPollAck() (stage.Message, bool, error) {
	if r.acks == nil {
		return 0, false, fmt.Errorf("%w: runner is %s", ErrNotReady, r.state)
	}
	return r.acks.TryRecv()
}

// Close drops the downstream conduit, so the worker's next receive observes
// closure, and joins the worker. An adopted stage that never ran is
// released instead. Close is a no-op on an empty or closed runner.
func (r *Runner) Close() error {
	switch r.state {
	case StateAdopted:
		s := r.stage
		r.stage = nil
		r.state = StateClosed
		return release(s)
	case StateRunning:
		r.state = StateDraining
		close(r.out)
		<-r.done
		r.state = StateClosed
		return nil
	default:
		return nil
	}
}

// Err returns what went wrong inside the worker: the error Execute returned,
// a recovered panic, or the failures of consumers released by the stage. It
// is nil until the runner is closed, and nil for a stage that never ran.
func (r *Runner) Err() error {
	if r.state != StateClosed || r.result == nil {
		return nil
	}
	return r.result.err
}
