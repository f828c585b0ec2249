package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nao1215/streamcraft/internal/database"
	"github.com/nao1215/streamcraft/internal/stage"
)

// ErrUnsupportedFormat is returned by New for formats the store cannot hold.
var ErrUnsupportedFormat = errors.New("unsupported capture format")

// Writer persists one capture. *database.CaptureDB implements it.
type Writer interface {
	InsertCapture(ctx context.Context, c *database.Capture) (int64, error)
}

// Sink is a tail stage that writes every payload it receives to a capture
// store under a pipeline label, numbered from 1.
//
// Every Sink gets its own ID, and captures are keyed by run ID, sink ID and
// sequence number. Sinks sharing a label, on two branches of a fan-out or in
// two runs of the same recipe, therefore never overwrite each other.
//
//	Text|Bytes ----> | store |
type Sink struct {
	w      Writer
	id     string
	label  string
	runID  string
	format stage.Format
	ctx    context.Context
	seq    int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithContext sets the context used for store writes.
func WithContext(ctx context.Context) Option {
	return func(s *Sink) {
		s.ctx = ctx
	}
}

// WithRunID tags every capture with the ID of the run writing it.
func WithRunID(id string) Option {
	return func(s *Sink) {
		s.runID = id
	}
}

// New returns a sink storing format payloads under label. Only text and
// bytes are accepted.
func New(w Writer, label string, format stage.Format, opts ...Option) (*Sink, error) {
	if format != stage.FormatText && format != stage.FormatBytes {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if label == "" {
		label = "default"
	}
	s := &Sink{
		w:      w,
		id:     uuid.NewString(),
		label:  label,
		format: format,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Label returns the pipeline label captures are stored under.
func (s *Sink) Label() string {
	return s.label
}

// ID returns the sink ID stored with every capture.
func (s *Sink) ID() string {
	return s.id
}

// Stored returns the number of captures written. It is only meaningful
// after teardown.
func (s *Sink) Stored() int64 {
	return s.seq
}

// Name implements stage.Stage.
func (s *Sink) Name() string { return "store" }

// Role implements stage.Stage. It follows the stored format.
func (s *Sink) Role() stage.Role {
	if s.format == stage.FormatBytes {
		return stage.RoleBytesSink
	}
	return stage.RoleTextSink
}

// Shape implements stage.Stage.
func (s *Sink) Shape() stage.Shape { return stage.Shape{Input: s.format} }

// AdoptParent implements stage.Stage. A tail never acknowledges.
func (s *Sink) AdoptParent(stage.Parent) {}

// Release implements stage.Stage.
func (s *Sink) Release() error { return nil }

// Execute implements stage.Stage. A failed write ends the loop.
func (s *Sink) Execute(inbound <-chan stage.Datagram) error {
	return stage.Loop{
		OnData: func(p stage.Payload) error {
			if p.Format() != s.format {
				return fmt.Errorf("%w: %s data", stage.ErrUnexpectedDatagram, p.Format())
			}
			var payload []byte
			switch v := p.(type) {
			case stage.Text:
				payload = []byte(v)
			case stage.Bytes:
				payload = v
			}

			s.seq++
			_, err := s.w.InsertCapture(s.ctx, &database.Capture{
				Pipeline: s.label,
				RunID:    s.runID,
				SinkID:   s.id,
				Seq:      s.seq,
				Stage:    s.Name(),
				Format:   string(s.format),
				Payload:  payload,
			})
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			return nil
		},
	}.Run(inbound)
}
