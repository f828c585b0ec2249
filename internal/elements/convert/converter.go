package convert

import (
	"fmt"

	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// converter is the part shared by every bytes to text stage. convert
// returns the text to send for one chunk; an empty result sends nothing.
type converter struct {
	name    string
	out     *pipeline.Output
	convert func(chunk []byte) (string, error)
}

func newConverter(name string, convert func([]byte) (string, error)) converter {
	return converter{
		name:    name,
		out:     pipeline.NewOutput(stage.RoleTextSink, stage.FormatText),
		convert: convert,
	}
}

// Name implements stage.Stage.
func (c *converter) Name() string { return c.name }

// Role implements stage.Stage.
func (c *converter) Role() stage.Role { return stage.RoleBytesSink }

// Shape implements stage.Stage.
func (c *converter) Shape() stage.Shape {
	return stage.Shape{Input: stage.FormatBytes, Outputs: []stage.Format{stage.FormatText}}
}

// AdoptParent implements stage.Stage.
func (c *converter) AdoptParent(stage.Parent) {}

// Link adopts a text sink.
func (c *converter) Link(slot string, consumer stage.Stage) error {
	return c.out.LinkSlot(slot, consumer)
}

// Ready implements stage.Producer.
func (c *converter) Ready() error { return c.out.Ready() }

// Execute implements stage.Stage.
func (c *converter) Execute(inbound <-chan stage.Datagram) error {
	if err := c.out.Open(); err != nil {
		return err
	}
	return stage.Loop{
		OnData: func(p stage.Payload) error {
			b, ok := p.(stage.Bytes)
			if !ok {
				return fmt.Errorf("%w: %s data", stage.ErrUnexpectedDatagram, p.Format())
			}
			text, err := c.convert(b)
			if err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			if text == "" {
				return nil
			}
			return c.out.Send(stage.Text(text))
		},
	}.Run(inbound)
}

// Release implements stage.Stage.
func (c *converter) Release() error {
	return c.out.Release()
}
