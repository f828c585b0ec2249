package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/stage"
)

// Option configures a Pipeline.
type Option func(*engine)

// WithLogger sets the logger used for pipeline lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithID sets the run identifier instead of a random one, so that data a
// stage writes during the run can carry the same ID as the run report.
func WithID(id uuid.UUID) Option {
	return func(e *engine) {
		e.id = id
	}
}

// WithName sets a human readable name, used in logs and run reports.
func WithName(name string) Option {
	return func(e *engine) {
		e.name = name
	}
}

// Pipeline drives a chain of stages from its head.
//
// A Pipeline that becomes unreachable without Teardown is torn down by the
// runtime. Teardown is still the expected way to end a run because the
// cleanup runs at an unspecified time.
//
// Design decision: the automatic teardown uses runtime.AddCleanup rather
// than runtime.SetFinalizer. A finalizer would need the Pipeline itself and
// would resurrect it for a cycle, while a cleanup only receives the engine.
// The engine never points back at the Pipeline, so the wrapper can be
// collected while the workers it owns are still alive.
type Pipeline struct {
	e *engine
}

// engine holds the pipeline state. It is separate from Pipeline so the
// cleanup registered on Pipeline can reach it. Nothing in engine may refer
// to the Pipeline, or the cleanup never runs.
type engine struct {
	id     uuid.UUID
	name   string
	logger *slog.Logger

	mu          sync.Mutex
	head        Runner
	initialized bool
	exhausted   bool
	torndown    bool
	steps       int

	teardownOnce sync.Once
	teardownErr  error
}

// New adopts head and returns an uninitialized pipeline. The head must
// declare no input.
func New(head stage.Stage, opts ...Option) (*Pipeline, error) {
	if head == nil {
		return nil, ErrNoStageAdopted
	}
	if in := head.Shape().Input; in != stage.FormatNone {
		return nil, fmt.Errorf("%w: head %s accepts %s", stage.ErrIncompatibleFormat, head.Name(), in)
	}

	e := &engine{
		id:   uuid.New(),
		name: head.Name(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Logger()
	}
	e.logger = e.logger.With("pipeline", e.name, "pipeline_id", e.id.String())

	if err := e.head.Adopt(head); err != nil {
		return nil, err
	}

	p := &Pipeline{e: e}
	runtime.AddCleanup(p, func(e *engine) {
		if err := e.teardown(); err != nil {
			e.logger.Warn("automatic teardown failed", "error", err)
		}
	}, e)
	return p, nil
}

// ID returns the run identifier.
func (p *Pipeline) ID() uuid.UUID {
	return p.e.id
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.e.name
}

// Steps returns the number of Step calls that progressed.
func (p *Pipeline) Steps() int {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return p.e.steps
}

// Init checks that every declared output slot in the chain is linked and
// spawns the head worker. The head spawns its own children when it starts.
func (p *Pipeline) Init() error {
	e := p.e
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.torndown {
		return fmt.Errorf("%w: pipeline was torn down", ErrNotReady)
	}
	if e.initialized {
		return ErrAlreadyRunning
	}
	if e.head.State() != StateAdopted {
		return fmt.Errorf("%w: %w", ErrNotReady, ErrNoStageAdopted)
	}
	if err := e.head.Ready(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	if err := e.head.Spawn(); err != nil {
		return err
	}
	e.initialized = true
	e.logger.Debug("pipeline initialized")
	return nil
}

// Step sends one Iterate to the head and waits for its acknowledgement.
//
// Once the head reports that it finished, Step returns Exhausted and keeps
// returning it. If the head worker exited without reporting, Step returns
// Exhausted with stage.ErrReceiveFailed once; later calls return Exhausted
// with no error.
func (p *Pipeline) Step() (Outcome, error) {
	e := p.e
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || e.torndown {
		return 0, ErrNotReady
	}
	if e.exhausted {
		return Exhausted, nil
	}

	if err := e.head.SendControl(stage.Iterate); err != nil && !errors.Is(err, ErrSendFailed) {
		return 0, err
	}

	msg, err := e.head.AwaitAck()
	if err != nil {
		e.exhausted = true
		e.logger.Warn("head worker exited without finishing", "error", err)
		return Exhausted, err
	}

	switch msg {
	case stage.IterationComplete:
		e.steps++
		return Progressed, nil
	case stage.WorkerFinished:
		e.exhausted = true
		e.logger.Debug("pipeline exhausted", "steps", e.steps)
		return Exhausted, nil
	default:
		return 0, fmt.Errorf("%w: %s from head", stage.ErrUnexpectedDatagram, msg)
	}
}

// Teardown sends Terminate to the head and joins it. Every stage releases
// its own children after leaving its loop, so Teardown returns only when
// all workers of the chain have exited. Teardown is idempotent and may be
// called on a pipeline that was never initialized.
func (p *Pipeline) Teardown() error {
	return p.e.teardown()
}

// Err returns the failures recorded inside the chain: what the head stage
// returned from Execute, joined with every failure its consumers forwarded
// while the chain shut down. It is nil before Teardown.
//
// Design decision: a stage failure ends the run the same way exhaustion
// does, so Step keeps returning Exhausted with no error and callers that
// only step are unaffected. Err is where the diagnostics are kept for
// callers that report on a run, such as Run.
func (p *Pipeline) Err() error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return p.e.head.Err()
}

// Close is Teardown, for use with io.Closer.
func (p *Pipeline) Close() error {
	return p.Teardown()
}

func (e *engine) teardown() error {
	e.teardownOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.torndown = true
		if e.head.State() == StateRunning {
			if err := e.head.SendControl(stage.Terminate); err != nil && !errors.Is(err, ErrSendFailed) {
				e.teardownErr = err
			}
		}
		if err := e.head.Close(); err != nil && e.teardownErr == nil {
			e.teardownErr = err
		}
		e.logger.Debug("pipeline torn down", "steps", e.steps)
	})
	return e.teardownErr
}
