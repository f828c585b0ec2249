package media

import (
	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/stage"
)

// PacketData is a FormatPacket payload. Stream describes the stream the
// packet belongs to so that a decoder can be opened from the first packet
// it receives.
type PacketData struct {
	Packet *av.Packet
	Stream av.Stream
}

// Format implements stage.Payload.
func (PacketData) Format() stage.Format { return stage.FormatPacket }

// Free frees the packet.
func (p PacketData) Free() {
	p.Packet.Free()
}
