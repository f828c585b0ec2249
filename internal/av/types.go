package av

import (
	"strings"
	"sync"
)

// Locator is an opaque scheme-prefixed resource string such as
// "file:/videos/a.mp4". It is passed to the collaborator verbatim.
type Locator string

// FileLocator returns the locator of a local file.
func FileLocator(path string) Locator {
	return Locator("file:" + path)
}

// Scheme returns the part before the first colon, or "" if there is none.
func (l Locator) Scheme() string {
	s, _, ok := strings.Cut(string(l), ":")
	if !ok {
		return ""
	}
	return s
}

// Rest returns the part after the first colon.
func (l Locator) Rest() string {
	_, r, _ := strings.Cut(string(l), ":")
	return r
}

// MediaKind is the kind of an elementary stream.
type MediaKind int

// Media kinds.
const (
	KindUnknown MediaKind = iota
	KindVideo
	KindAudio
	KindData
)

// String returns the kind name.
func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// ParseMediaKind maps "video" and "audio" to their kinds and everything
// else to KindData.
func ParseMediaKind(s string) MediaKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	default:
		return KindData
	}
}

// CodecID identifies a codec.
type CodecID int

// CodecParams are the stream parameters a decoder is opened with.
type CodecParams struct {
	Kind       MediaKind
	Width      int
	Height     int
	SampleRate int
	Channels   int
}

// Stream describes the best stream of a kind.
type Stream struct {
	Index  int
	Kind   MediaKind
	Codec  CodecID
	Params CodecParams
}

// Packet is one demuxed packet. It is owned by exactly one stage at a time
// and must be freed by its final owner.
type Packet struct {
	StreamIndex int
	PTS         int64
	Data        []byte

	freeOnce sync.Once
	onFree   func()
}

// NewPacket returns a packet whose release calls onFree once. onFree may
// be nil.
func NewPacket(streamIndex int, pts int64, data []byte, onFree func()) *Packet {
	return &Packet{StreamIndex: streamIndex, PTS: pts, Data: data, onFree: onFree}
}

// Free releases the packet. It is safe to call more than once.
func (p *Packet) Free() {
	if p == nil {
		return
	}
	p.freeOnce.Do(func() {
		p.Data = nil
		if p.onFree != nil {
			p.onFree()
		}
	})
}

// Frame is one decoded frame.
type Frame struct {
	Kind MediaKind
	PTS  int64
}
