package media

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// Slot names of the demuxer outputs.
const (
	SlotVideo = "video"
	SlotAudio = "audio"
)

// Demux is a head stage that reads packets from a media input and routes
// the packets of the best video stream to the video slot and those of the
// best audio stream to the audio slot. Packets of any other stream are
// freed.
//
//	+-------+ video ----> video-packet-sink
//	| demux |
//	+-------+ audio ----> audio-packet-sink
type Demux struct {
	*pipeline.FanOut
	src *packetSource
}

// NewDemux opens loc through backend and looks up its best video and audio
// streams. It fails when the input has neither.
func NewDemux(backend av.Backend, loc av.Locator) (*Demux, error) {
	dm, err := backend.Open(loc)
	if err != nil {
		return nil, fmt.Errorf("demux %s: %w", loc, err)
	}

	src := &packetSource{demuxer: dm, logger: log.Named("demux")}
	for _, kind := range []av.MediaKind{av.KindVideo, av.KindAudio} {
		st, err := dm.FindBestStream(kind)
		if errors.Is(err, av.ErrStreamNotFound) {
			continue
		}
		if err != nil {
			_ = dm.Close()
			return nil, fmt.Errorf("demux %s: %w", loc, err)
		}
		src.streams = append(src.streams, routedStream{route: kind.String(), stream: st})
	}
	if len(src.streams) == 0 {
		_ = dm.Close()
		return nil, fmt.Errorf("demux %s: %w", loc, av.ErrStreamNotFound)
	}

	d := &Demux{
		FanOut: pipeline.NewFanOut("demux", stage.RolePacketSrc, src,
			pipeline.SlotSpec{Route: SlotVideo, Role: stage.RoleVideoPacketSink, Format: stage.FormatPacket},
			pipeline.SlotSpec{Route: SlotAudio, Role: stage.RoleAudioPacketSink, Format: stage.FormatPacket},
		),
		src: src,
	}
	d.OnDrop(func(it pipeline.Item) {
		if p, ok := it.Payload.(PacketData); ok {
			p.Free()
		}
	})
	return d, nil
}

// Stream returns the best stream of kind, if the input has one.
func (d *Demux) Stream(kind av.MediaKind) (av.Stream, bool) {
	for _, rs := range d.src.streams {
		if rs.stream.Kind == kind {
			return rs.stream, true
		}
	}
	return av.Stream{}, false
}

type routedStream struct {
	route  string
	stream av.Stream
}

// packetSource adapts a demuxer to pipeline.Source.
type packetSource struct {
	demuxer av.Demuxer
	streams []routedStream
	logger  *slog.Logger
}

func (s *packetSource) Next() (pipeline.Item, error) {
	pkt, err := s.demuxer.ReadNextPacket()
	if err != nil {
		// ErrEndOfStream wraps io.EOF and ends the run quietly.
		return pipeline.Item{}, err
	}

	for _, rs := range s.streams {
		if rs.stream.Index == pkt.StreamIndex {
			return pipeline.Item{
				Route:   rs.route,
				Payload: PacketData{Packet: pkt, Stream: rs.stream},
			}, nil
		}
	}

	s.logger.Debug("dropping packet of unselected stream",
		slog.Int("stream_index", pkt.StreamIndex),
		slog.Int64("pts", pkt.PTS))
	return pipeline.Item{
		Route:   fmt.Sprintf("stream-%d", pkt.StreamIndex),
		Payload: PacketData{Packet: pkt},
	}, nil
}

func (s *packetSource) Close() error {
	return s.demuxer.Close()
}
