package recipe

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/elements/convert"
	"github.com/nao1215/streamcraft/internal/elements/media"
	"github.com/nao1215/streamcraft/internal/elements/source"
	"github.com/nao1215/streamcraft/internal/elements/store"
	"github.com/nao1215/streamcraft/internal/elements/text"
	"github.com/nao1215/streamcraft/internal/stage"
)

// Stage kinds registered by DefaultRegistry.
const (
	KindTextTestSrc  = "texttestsrc"
	KindStdoutLog    = "stdoutlog"
	KindCase         = "case"
	KindFileSrc      = "filesrc"
	KindHTMLText     = "htmltext"
	KindDigest       = "digest"
	KindExif         = "exif"
	KindStore        = "store"
	KindDemux        = "demux"
	KindVideoDecoder = "videodecoder"
	KindAudioDecoder = "audiodecoder"
)

// DefaultRegistry returns a registry holding every built-in stage.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for kind, f := range map[string]Factory{
		KindTextTestSrc:  newTextTestSrc,
		KindStdoutLog:    newStdoutLog,
		KindCase:         newCase,
		KindFileSrc:      newFileSrc,
		KindHTMLText:     func(*Node, Env) (stage.Stage, error) { return convert.NewHTMLText(), nil },
		KindDigest:       func(*Node, Env) (stage.Stage, error) { return convert.NewDigest(), nil },
		KindExif:         newExif,
		KindStore:        newStore,
		KindDemux:        newDemux,
		KindVideoDecoder: newDecoder(media.NewVideoDecoder),
		KindAudioDecoder: newDecoder(media.NewAudioDecoder),
	} {
		// Kinds are unique map keys.
		_ = r.Register(kind, f)
	}
	return r
}

func newTextTestSrc(n *Node, _ Env) (stage.Stage, error) {
	s, err := n.With.String("text", text.DefaultTestText)
	if err != nil {
		return nil, err
	}
	limit, err := n.With.Int("limit", 0)
	if err != nil {
		return nil, err
	}
	return text.NewTestSrc(s, text.WithLimit(limit)), nil
}

func newStdoutLog(_ *Node, env Env) (stage.Stage, error) {
	return text.NewStdoutLog(env.Out), nil
}

func newCase(n *Node, _ Env) (stage.Stage, error) {
	mode, err := n.With.String("mode", text.CaseUpper)
	if err != nil {
		return nil, err
	}
	lang, err := n.With.String("language", "")
	if err != nil {
		return nil, err
	}
	tag := language.Und
	if lang != "" {
		if tag, err = language.Parse(lang); err != nil {
			return nil, fmt.Errorf("%w: language: %w", ErrInvalidOption, err)
		}
	}
	return text.NewCase(mode, tag)
}

func newFileSrc(n *Node, _ Env) (stage.Stage, error) {
	loc, err := n.With.String("location", "")
	if err != nil {
		return nil, err
	}
	if loc == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidOption)
	}
	size, err := n.With.Int("chunk_size", source.DefaultChunkSize)
	if err != nil {
		return nil, err
	}
	return source.Open(av.Locator(loc), source.WithChunkSize(size))
}

func newExif(n *Node, _ Env) (stage.Stage, error) {
	limit, err := n.With.Int("limit", convert.DefaultExifLimit)
	if err != nil {
		return nil, err
	}
	return convert.NewExif(limit), nil
}

func newStore(n *Node, env Env) (stage.Stage, error) {
	if env.Store == nil {
		return nil, ErrNoStore
	}
	label, err := n.With.String("label", env.Label)
	if err != nil {
		return nil, err
	}
	format, err := n.With.String("format", string(stage.FormatText))
	if err != nil {
		return nil, err
	}
	return store.New(env.Store, label, stage.Format(format), store.WithRunID(env.RunID))
}

func newDemux(n *Node, env Env) (stage.Stage, error) {
	if env.Backend == nil {
		return nil, ErrNoBackend
	}
	loc, err := n.With.String("location", "")
	if err != nil {
		return nil, err
	}
	if loc == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidOption)
	}
	return media.NewDemux(env.Backend, av.Locator(loc))
}

func newDecoder(ctor func(av.Backend) *media.Decoder) Factory {
	return func(_ *Node, env Env) (stage.Stage, error) {
		if env.Backend == nil {
			return nil, ErrNoBackend
		}
		return ctor(env.Backend), nil
	}
}
