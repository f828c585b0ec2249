package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// ErrStreamKind is returned when a decoder receives a packet of the wrong
// stream kind.
var ErrStreamKind = errors.New("packet of unexpected stream kind")

// Decoder decodes the packets of one stream kind and sends one text line
// per decoded frame. It frees every packet it receives.
//
//	Packet ----> | video-decoder | ----> Text
type Decoder struct {
	kind    av.MediaKind
	backend av.Backend
	out     *pipeline.Output
	dec     av.Decoder
	frames  int
}

// NewVideoDecoder returns a decoder for video packets.
func NewVideoDecoder(backend av.Backend) *Decoder {
	return newDecoder(av.KindVideo, backend)
}

// NewAudioDecoder returns a decoder for audio packets.
func NewAudioDecoder(backend av.Backend) *Decoder {
	return newDecoder(av.KindAudio, backend)
}

func newDecoder(kind av.MediaKind, backend av.Backend) *Decoder {
	return &Decoder{
		kind:    kind,
		backend: backend,
		out:     pipeline.NewOutput(stage.RoleTextSink, stage.FormatText),
	}
}

// Frames returns the number of frames decoded. It is only meaningful after
// teardown.
func (d *Decoder) Frames() int {
	return d.frames
}

// Name implements stage.Stage.
func (d *Decoder) Name() string { return d.kind.String() + "-decoder" }

// Role implements stage.Stage.
func (d *Decoder) Role() stage.Role {
	if d.kind == av.KindAudio {
		return stage.RoleAudioPacketSink
	}
	return stage.RoleVideoPacketSink
}

// Shape implements stage.Stage.
func (d *Decoder) Shape() stage.Shape {
	return stage.Shape{Input: stage.FormatPacket, Outputs: []stage.Format{stage.FormatText}}
}

// AdoptParent implements stage.Stage.
func (d *Decoder) AdoptParent(stage.Parent) {}

// Link adopts a text sink.
func (d *Decoder) Link(slot string, consumer stage.Stage) error {
	return d.out.LinkSlot(slot, consumer)
}

// Ready implements stage.Producer.
func (d *Decoder) Ready() error { return d.out.Ready() }

// Execute implements stage.Stage.
func (d *Decoder) Execute(inbound <-chan stage.Datagram) error {
	if err := d.out.Open(); err != nil {
		return err
	}
	return stage.Loop{
		OnData: func(p stage.Payload) error {
			pd, ok := p.(PacketData)
			if !ok {
				return fmt.Errorf("%w: %s data", stage.ErrUnexpectedDatagram, p.Format())
			}
			defer pd.Free()
			return d.decode(pd)
		},
	}.Run(inbound)
}

func (d *Decoder) decode(pd PacketData) error {
	if pd.Stream.Kind != d.kind {
		return fmt.Errorf("%s: %w: %s", d.Name(), ErrStreamKind, pd.Stream.Kind)
	}
	if d.dec == nil {
		dec, err := d.backend.OpenDecoder(pd.Stream.Codec, pd.Stream.Params)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name(), err)
		}
		d.dec = dec
	}

	frames, err := d.dec.Decode(pd.Packet)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name(), err)
	}
	if len(frames) == 0 {
		return nil
	}

	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "%s frame pts=%d\n", f.Kind, f.PTS)
	}
	d.frames += len(frames)
	return d.out.Send(stage.Text(b.String()))
}

// Release joins the consumer and closes the decoder.
func (d *Decoder) Release() error {
	err := d.out.Release()
	if d.dec != nil {
		err = errors.Join(err, d.dec.Close())
		d.dec = nil
	}
	return err
}
