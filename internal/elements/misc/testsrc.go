package misc

import (
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// TestSrc is a head stage that sends a scripted list of payloads, one per
// Iterate, and finishes after the last.
//
//	+---------+
//	| testsrc |----> ????
//	+---------+
type TestSrc struct {
	format   stage.Format
	payloads []stage.Payload
	next     int

	out    *pipeline.Output
	parent stage.Parent
}

// NewTestSrc returns a source whose single output emits format and expects
// a consumer of role consumerRole.
func NewTestSrc(consumerRole stage.Role, format stage.Format, payloads ...stage.Payload) *TestSrc {
	return &TestSrc{
		format:   format,
		payloads: payloads,
		out:      pipeline.NewOutput(consumerRole, format),
	}
}

// Name implements stage.Stage.
func (s *TestSrc) Name() string { return "testsrc" }

// Role derives the source role from the emitted format.
func (s *TestSrc) Role() stage.Role {
	switch s.format {
	case stage.FormatBytes:
		return stage.RoleBytesSrc
	case stage.FormatPacket:
		return stage.RolePacketSrc
	default:
		return stage.RoleTextSrc
	}
}

// Shape implements stage.Stage.
func (s *TestSrc) Shape() stage.Shape {
	return stage.Shape{Outputs: []stage.Format{s.format}}
}

// AdoptParent implements stage.Stage.
func (s *TestSrc) AdoptParent(parent stage.Parent) { s.parent = parent }

// Link implements stage.Producer.
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
			if s.next >= len(s.payloads) {
				return false, nil
			}
			p := s.payloads[s.next]
			s.next++
			if err := s.out.Send(p); err != nil {
				return false, err
			}
			return true, nil
		},
	}.Run(inbound)
}

// Release implements stage.Stage.
func (s *TestSrc) Release() error {
	return s.out.Release()
}
