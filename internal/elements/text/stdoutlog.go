package text

import (
	"fmt"
	"io"
	"os"

	"github.com/nao1215/streamcraft/internal/stage"
)

// StdoutLog is a tail stage that writes every text it receives to a writer,
// standard output by default.
//
//	Text ----> | stdoutlog |
type StdoutLog struct {
	w       io.Writer
	written int
}

// NewStdoutLog returns a sink writing to w. A nil w selects os.Stdout.
func NewStdoutLog(w io.Writer) *StdoutLog {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutLog{w: w}
}

// Written returns the number of texts written. It is only meaningful after
// teardown.
func (s *StdoutLog) Written() int {
	return s.written
}

// Name implements stage.Stage.
func (s *StdoutLog) Name() string { return "stdoutlog" }

// Role implements stage.Stage.
func (s *StdoutLog) Role() stage.Role { return stage.RoleTextSink }

// Shape implements stage.Stage.
func (s *StdoutLog) Shape() stage.Shape { return stage.Shape{Input: stage.FormatText} }

// AdoptParent implements stage.Stage.
func (s *StdoutLog) AdoptParent(stage.Parent) {}

// Release implements stage.Stage.
func (s *StdoutLog) Release() error { return nil }

// Execute implements stage.Stage.
func (s *StdoutLog) Execute(inbound <-chan stage.Datagram) error {
	return stage.Loop{
		OnData: func(p stage.Payload) error {
			t, ok := p.(stage.Text)
			if !ok {
				return fmt.Errorf("%w: %s data", stage.ErrUnexpectedDatagram, p.Format())
			}
			if _, err := io.WriteString(s.w, string(t)); err != nil {
				return fmt.Errorf("stdoutlog: %w", err)
			}
			s.written++
			return nil
		},
	}.Run(inbound)
}

