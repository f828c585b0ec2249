package av

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// SyntheticScheme is the locator scheme served by Synthetic.
const SyntheticScheme = "synthetic"

// Codec IDs reported by Synthetic.
const (
	CodecSyntheticVideo CodecID = 27
	CodecSyntheticAudio CodecID = 86018
	CodecSyntheticData  CodecID = 0
)

// Synthetic is an in-process Backend. A locator lists the packets to
// produce, in order:
//
//	synthetic:video,audio,video*3,data,error
//
// Each token is a stream kind optionally followed by "*N" to repeat it.
// "video" packets belong to stream 0, "audio" to stream 1 and any other
// kind to stream 2. The token "error" makes that read fail with ErrRead.
//
// Synthetic counts packet allocations and frees so tests can check that
// every packet was released by its owner. The zero value is ready to use.
type Synthetic struct {
	allocated atomic.Int64
	freed     atomic.Int64
}

// NewSynthetic returns a Synthetic backend.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Outstanding returns the number of packets allocated but not freed.
func (s *Synthetic) Outstanding() int64 {
	return s.allocated.Load() - s.freed.Load()
}

// Allocated returns the number of packets allocated so far.
func (s *Synthetic) Allocated() int64 {
	return s.allocated.Load()
}

type syntheticToken struct {
	kind MediaKind
	fail bool
}

// Open implements Backend.
func (s *Synthetic) Open(loc Locator) (Demuxer, error) {
	if loc.Scheme() != SyntheticScheme {
		return nil, FromCode(OpOpen, CodeNoEnt)
	}
	tokens, err := parseSynthetic(loc.Rest())
	if err != nil {
		return nil, &Error{Op: OpOpen, Code: CodeInval, Err: fmt.Errorf("%w: %w", ErrOpen, err)}
	}
	return &syntheticDemuxer{backend: s, tokens: tokens}, nil
}

func parseSynthetic(layout string) ([]syntheticToken, error) {
	var tokens []syntheticToken
	for _, raw := range strings.Split(layout, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, count := raw, 1
		if n, c, ok := strings.Cut(raw, "*"); ok {
			v, err := strconv.Atoi(c)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("bad repeat count in %q", raw)
			}
			name, count = n, v
		}
		tok := syntheticToken{kind: ParseMediaKind(name)}
		if strings.EqualFold(name, "error") {
			tok = syntheticToken{fail: true}
		}
		for range count {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no packets in %q", layout)
	}
	return tokens, nil
}

// OpenDecoder implements Backend.
func (s *Synthetic) OpenDecoder(codec CodecID, params CodecParams) (Decoder, error) {
	switch {
	case codec == CodecSyntheticVideo && params.Kind == KindVideo,
		codec == CodecSyntheticAudio && params.Kind == KindAudio:
		return &syntheticDecoder{kind: params.Kind}, nil
	default:
		return nil, FromCode(OpOpenDecoder, CodeDecoderNotFound)
	}
}

func streamIndex(kind MediaKind) int {
	switch kind {
	case KindVideo:
		return 0
	case KindAudio:
		return 1
	default:
		return 2
	}
}

func codecOf(kind MediaKind) CodecID {
	switch kind {
	case KindVideo:
		return CodecSyntheticVideo
	case KindAudio:
		return CodecSyntheticAudio
	default:
		return CodecSyntheticData
	}
}

type syntheticDemuxer struct {
	backend *Synthetic

	mu     sync.Mutex
	tokens []syntheticToken
	pos    int
	pts    [3]int64
	closed bool
}

func (d *syntheticDemuxer) FindBestStream(kind MediaKind) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.tokens {
		if !t.fail && t.kind == kind {
			st := Stream{Index: streamIndex(kind), Kind: kind, Codec: codecOf(kind)}
			st.Params.Kind = kind
			switch kind {
			case KindVideo:
				st.Params.Width, st.Params.Height = 320, 240
			case KindAudio:
				st.Params.SampleRate, st.Params.Channels = 48000, 2
			}
			return st, nil
		}
	}
	return Stream{}, FromCode(OpFindStream, CodeStreamNotFound)
}

func (d *syntheticDemuxer) ReadNextPacket() (*Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, FromCode(OpRead, CodeClosed)
	}
	if d.pos >= len(d.tokens) {
		return nil, FromCode(OpRead, CodeEOF)
	}
	t := d.tokens[d.pos]
	d.pos++
	if t.fail {
		return nil, FromCode(OpRead, CodeIO)
	}

	idx := streamIndex(t.kind)
	pts := d.pts[idx]
	d.pts[idx]++

	b := d.backend
	b.allocated.Add(1)
	data := []byte(fmt.Sprintf("%s#%d", t.kind, pts))
	return NewPacket(idx, pts, data, func() { b.freed.Add(1) }), nil
}

func (d *syntheticDemuxer) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

type syntheticDecoder struct {
	kind   MediaKind
	closed bool
}

func (d *syntheticDecoder) Decode(pkt *Packet) ([]Frame, error) {
	if d.closed || pkt == nil || pkt.Data == nil {
		return nil, FromCode(OpDecode, CodeInvalidData)
	}
	return []Frame{{Kind: d.kind, PTS: pkt.PTS}}, nil
}

func (d *syntheticDecoder) Close() error {
	d.closed = true
	return nil
}
