package text

import (
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// DefaultTestText is what a TestSrc sends unless configured otherwise.
const DefaultTestText = "Test\n"

// TestSrc is a head stage that sends the same text on every Iterate.
//
//	+-------------+
//	| texttestsrc |----> Text
//	+-------------+
type TestSrc struct {
	text  string
	limit int
	sent  int

	out    *pipeline.Output
	parent stage.Parent
}

// TestSrcOption configures a TestSrc.
type TestSrcOption func(*TestSrc)

// WithLimit stops the source after n sends. Zero or less means no limit.
func WithLimit(n int) TestSrcOption {
	return func(s *TestSrc) {
		s.limit = n
	}
}

// NewTestSrc returns a source sending text. An empty text selects
// DefaultTestText.
func NewTestSrc(text string, opts ...TestSrcOption) *TestSrc {
	if text == "" {
		text = DefaultTestText
	}
	s := &TestSrc{
		text: text,
		out:  pipeline.NewOutput(stage.RoleTextSink, stage.FormatText),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetText replaces the text to send. It must be called before the pipeline
// is initialized.
func (s *TestSrc) SetText(text string) {
	s.text = text
}

// Sent returns the number of texts sent. It is only meaningful after
// teardown.
func (s *TestSrc) Sent() int {
	return s.sent
}

// Name implements stage.Stage.
func (s *TestSrc) Name() string { return "texttestsrc" }

// Role implements stage.Stage.
func (s *TestSrc) Role() stage.Role { return stage.RoleTextSrc }

// Shape implements stage.Stage.
func (s *TestSrc) Shape() stage.Shape {
	return stage.Shape{Outputs: []stage.Format{stage.FormatText}}
}

// AdoptParent implements stage.Stage.
func (s *TestSrc) AdoptParent(parent stage.Parent) { s.parent = parent }

// Link adopts a text sink.
func (s *TestSrc) Link(slot string, consumer stage.Stage) error {
	return s.out.LinkSlot(slot, consumer)
}

// Ready implements stage.Producer.
func (s *TestSrc) Ready() error { return s.out.Ready() }

// Execute implements stage.Stage.
func (s *TestSrc) Execute(inbound <-chan stage.Datagram) error {
	if err := s.out.Open(); err != nil {
		return err
	}
	return stage.Loop{
		Parent: s.parent,
		OnIterate: func() (bool, error) {
			if s.limit > 0 && s.sent >= s.limit {
				return false, nil
			}
			if err := s.out.Send(stage.Text(s.text)); err != nil {
				return false, err
			}
			s.sent++
			return true, nil
		},
	}.Run(inbound)
}

// Release implements stage.Stage.
func (s *TestSrc) Release() error {
	return s.out.Release()
}
