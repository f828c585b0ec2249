package media

import (
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/elements/misc"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

type decodeChain struct {
	demux     *Demux
	video     *Decoder
	audio     *Decoder
	videoSink *misc.TestSink
	audioSink *misc.TestSink
	pipeline  *pipeline.Pipeline
}

func buildChain(t *testing.T, backend av.Backend, loc av.Locator) *decodeChain {
	t.Helper()

	d, err := NewDemux(backend, loc)
	if err != nil {
		t.Fatalf("NewDemux() error = %v", err)
	}
	c := &decodeChain{
		demux:     d,
		video:     NewVideoDecoder(backend),
		audio:     NewAudioDecoder(backend),
		videoSink: misc.NewTestSink(stage.RoleTextSink, stage.FormatText),
		audioSink: misc.NewTestSink(stage.RoleTextSink, stage.FormatText),
	}
	if err := c.video.Link(stage.SlotMain, c.videoSink); err != nil {
		t.Fatalf("Link(video sink) error = %v", err)
	}
	if err := c.audio.Link(stage.SlotMain, c.audioSink); err != nil {
		t.Fatalf("Link(audio sink) error = %v", err)
	}
	if err := d.Link(SlotVideo, c.video); err != nil {
		t.Fatalf("Link(video) error = %v", err)
	}
	if err := d.Link(SlotAudio, c.audio); err != nil {
		t.Fatalf("Link(audio) error = %v", err)
	}

	c.pipeline, err = pipeline.New(d)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.pipeline.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return c
}

func TestDemux_DecodesBothStreams(t *testing.T) {
	t.Parallel()

	backend := av.NewSynthetic()
	c := buildChain(t, backend, "synthetic:video,audio,video*2,data,audio")

	steps, outcome, err := pipeline.Drain(t.Context(), c.pipeline, 0)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if steps != 6 || outcome != pipeline.Exhausted {
		t.Errorf("Drain() = %d, %s; want 6, exhausted", steps, outcome)
	}
	if err := c.pipeline.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}

	wantVideo := []string{"video frame pts=0\n", "video frame pts=1\n", "video frame pts=2\n"}
	if got := c.videoSink.Texts(); !slices.Equal(got, wantVideo) {
		t.Errorf("video texts = %q, want %q", got, wantVideo)
	}
	wantAudio := []string{"audio frame pts=0\n", "audio frame pts=1\n"}
	if got := c.audioSink.Texts(); !slices.Equal(got, wantAudio) {
		t.Errorf("audio texts = %q, want %q", got, wantAudio)
	}
	if got := c.demux.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
	if c.video.Frames() != 3 || c.audio.Frames() != 2 {
		t.Errorf("Frames() video=%d audio=%d, want 3 and 2", c.video.Frames(), c.audio.Frames())
	}
	if got := backend.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d packets leaked", got)
	}
}

func TestDemux_ReadErrorEndsRun(t *testing.T) {
	t.Parallel()

	backend := av.NewSynthetic()
	c := buildChain(t, backend, "synthetic:video,error,video")

	if outcome, err := c.pipeline.Step(); err != nil || outcome != pipeline.Progressed {
		t.Fatalf("Step() = %s, %v; want progressed", outcome, err)
	}
	if outcome, err := c.pipeline.Step(); err != nil || outcome != pipeline.Exhausted {
		t.Fatalf("Step() after read error = %s, %v; want exhausted", outcome, err)
	}
	if err := c.pipeline.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if got := len(c.videoSink.Texts()); got != 1 {
		t.Errorf("video sink received %d texts, want 1", got)
	}
	if got := backend.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d packets leaked", got)
	}
}

// noVideoDecoder fails to open video decoders.
type noVideoDecoder struct {
	*av.Synthetic
}

func (b noVideoDecoder) OpenDecoder(codec av.CodecID, params av.CodecParams) (av.Decoder, error) {
	if params.Kind == av.KindVideo {
		return nil, av.FromCode(av.OpOpenDecoder, av.CodeDecoderNotFound)
	}
	return b.Synthetic.OpenDecoder(codec, params)
}

func TestDecoder_OpenFailureFreesPackets(t *testing.T) {
	t.Parallel()

	synth := av.NewSynthetic()
	c := buildChain(t, noVideoDecoder{synth}, "synthetic:video,video,audio")

	if outcome, err := c.pipeline.Step(); err != nil || outcome != pipeline.Progressed {
		t.Fatalf("Step() = %s, %v; want progressed", outcome, err)
	}
	if outcome, err := c.pipeline.Step(); err != nil || outcome != pipeline.Exhausted {
		t.Fatalf("Step() to exited decoder = %s, %v; want exhausted", outcome, err)
	}
	if err := c.pipeline.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}

	if got := synth.Allocated(); got != 2 {
		t.Errorf("Allocated() = %d, want 2", got)
	}
	if got := synth.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d packets leaked", got)
	}
	if got := len(c.videoSink.Texts()); got != 0 {
		t.Errorf("video sink received %d texts, want 0", got)
	}
}

func TestNewDemux_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		loc     av.Locator
		wantErr error
	}{
		{name: "unknown scheme", loc: "file:movie.mkv", wantErr: av.ErrOpen},
		{name: "no audio or video", loc: "synthetic:data*3", wantErr: av.ErrStreamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewDemux(av.NewSynthetic(), tt.loc); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewDemux() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDemux_Stream(t *testing.T) {
	t.Parallel()

	d, err := NewDemux(av.NewSynthetic(), "synthetic:video")
	if err != nil {
		t.Fatalf("NewDemux() error = %v", err)
	}
	defer d.Release() //nolint:errcheck

	st, ok := d.Stream(av.KindVideo)
	if !ok || st.Params.Width != 320 || st.Codec != av.CodecSyntheticVideo {
		t.Errorf("Stream(video) = %+v, %v", st, ok)
	}
	if _, ok := d.Stream(av.KindAudio); ok {
		t.Error("Stream(audio) found a stream in a video-only input")
	}
	if err := d.Ready(); !errors.Is(err, pipeline.ErrNoStageAdopted) {
		t.Errorf("Ready() error = %v, want ErrNoStageAdopted", err)
	}
}

func TestDecoder_Roles(t *testing.T) {
	t.Parallel()

	backend := av.NewSynthetic()
	d, err := NewDemux(backend, "synthetic:video,audio")
	if err != nil {
		t.Fatalf("NewDemux() error = %v", err)
	}
	defer d.Release() //nolint:errcheck

	if err := d.Link(SlotVideo, NewAudioDecoder(backend)); !errors.Is(err, stage.ErrIncompatibleRole) {
		t.Errorf("Link(audio decoder on video slot) error = %v, want ErrIncompatibleRole", err)
	}
	if got := NewVideoDecoder(backend).Name(); got != "video-decoder" {
		t.Errorf("Name() = %q", got)
	}
}
