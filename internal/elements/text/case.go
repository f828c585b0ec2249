package text

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// ErrUnknownCase is returned for a case mode other than upper, lower or
// title.
var ErrUnknownCase = errors.New("unknown case mode")

// Case mode names.
const (
	CaseUpper = "upper"
	CaseLower = "lower"
	CaseTitle = "title"
)

// Case rewrites the case of every text it receives and sends the result on.
//
//	Text ----> | case |----> Text
type Case struct {
	mode  string
	caser cases.Caser
	out   *pipeline.Output
}

// NewCase returns a converter for mode, one of CaseUpper, CaseLower or
// CaseTitle. Case rules are those of tag; an undefined tag selects English.
func NewCase(mode string, tag language.Tag) (*Case, error) {
	if tag == language.Und {
		tag = language.English
	}

	var caser cases.Caser
	switch strings.ToLower(mode) {
	case CaseUpper:
		caser = cases.Upper(tag)
	case CaseLower:
		caser = cases.Lower(tag)
	case CaseTitle:
		caser = cases.Title(tag)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCase, mode)
	}

	return &Case{
		mode:  strings.ToLower(mode),
		caser: caser,
		out:   pipeline.NewOutput(stage.RoleTextSink, stage.FormatText),
	}, nil
}

// Name implements stage.Stage.
func (c *Case) Name() string { return "case-" + c.mode }

// Role implements stage.Stage.
func (c *Case) Role() stage.Role { return stage.RoleTextSink }

// Shape implements stage.Stage.
func (c *Case) Shape() stage.Shape {
	return stage.Shape{Input: stage.FormatText, Outputs: []stage.Format{stage.FormatText}}
}

// AdoptParent implements stage.Stage.
func (c *Case) AdoptParent(stage.Parent) {}

// Link implements stage.Producer.
func (c *Case) Link(slot string, consumer stage.Stage) error {
	return c.out.LinkSlot(slot, consumer)
}

// Ready implements stage.Producer.
func (c *Case) Ready() error { return c.out.Ready() }

// Execute implements stage.Stage.
func (c *Case) Execute(inbound <-chan stage.Datagram) error {
	if err := c.out.Open(); err != nil {
		return err
	}
	return stage.Loop{
		OnData: func(p stage.Payload) error {
			t, ok := p.(stage.Text)
			if !ok {
				return fmt.Errorf("%w: %s data", stage.ErrUnexpectedDatagram, p.Format())
			}
			return c.out.Send(stage.Text(c.caser.String(string(t))))
		},
	}.Run(inbound)
}

// Release implements stage.Stage.
func (c *Case) Release() error {
	return c.out.Release()
}
