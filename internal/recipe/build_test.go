package recipe

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/database"
	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/model"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// memStore collects captures in memory.
type memStore struct {
	mu       sync.Mutex
	captures map[string][]string
}

func (m *memStore) InsertCapture(_ context.Context, c *database.Capture) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captures == nil {
		m.captures = make(map[string][]string)
	}
	m.captures[c.Pipeline] = append(m.captures[c.Pipeline], string(c.Payload))
	return c.Seq, nil
}

func (m *memStore) get(label string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures[label]
}

func mustParse(t *testing.T, doc string) *Recipe {
	t.Helper()
	r, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return r
}

func TestBuild_TextChain(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := mustParse(t, textRecipe)
	p, err := Build(r, DefaultRegistry(), Env{Out: &out, Logger: log.Discard()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if p.Name() != "shout" {
		t.Errorf("Name() = %q, want shout", p.Name())
	}

	report := pipeline.Run(t.Context(), p, r.Steps)
	if report.Status != model.StatusExhausted || report.Steps != 3 {
		t.Errorf("report = %s after %d steps, want exhausted after 3", report.Status, report.Steps)
	}
	if got := out.String(); got != "HI\nHI\nHI\n" {
		t.Errorf("output = %q", got)
	}
}

func TestBuild_FanOut(t *testing.T) {
	t.Parallel()

	doc := `
name: decode
head:
  kind: demux
  with:
    location: "synthetic:video,audio,video,data"
  outputs:
    video:
      kind: videodecoder
      sink:
        kind: store
        with: {label: video}
    audio:
      kind: audiodecoder
      sink:
        kind: store
        with: {label: audio}
`
	backend := av.NewSynthetic()
	st := &memStore{}
	p, err := Build(mustParse(t, doc), DefaultRegistry(), Env{Store: st, Backend: backend, Logger: log.Discard()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	report := pipeline.Run(t.Context(), p, 0)
	if report.Status != model.StatusExhausted || report.Steps != 4 {
		t.Errorf("report = %s after %d steps, want exhausted after 4", report.Status, report.Steps)
	}
	if got := st.get("video"); !slices.Equal(got, []string{"video frame pts=0\n", "video frame pts=1\n"}) {
		t.Errorf("video captures = %q", got)
	}
	if got := st.get("audio"); !slices.Equal(got, []string{"audio frame pts=0\n"}) {
		t.Errorf("audio captures = %q", got)
	}
	if backend.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d", backend.Outstanding())
	}
}

func TestBuild_StoreKeepsEveryCapture(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	// Both store stages fall back to the recipe name as their label.
	r := mustParse(t, `
name: keep
head:
  kind: demux
  with: {location: "synthetic:video,audio,video,audio"}
  outputs:
    video: {kind: videodecoder, sink: {kind: store}}
    audio: {kind: audiodecoder, sink: {kind: store}}
`)
	wantRun := []string{
		"audio frame pts=0\n", "audio frame pts=1\n",
		"video frame pts=0\n", "video frame pts=1\n",
	}

	var runIDs []string
	for run := 1; run <= 2; run++ {
		p, err := Build(r, DefaultRegistry(), Env{Store: db, Backend: av.NewSynthetic(), Logger: log.Discard()})
		if err != nil {
			t.Fatalf("run %d: Build() error = %v", run, err)
		}
		report := pipeline.Run(t.Context(), p, 0)
		if report.Status != model.StatusExhausted || report.Steps != 4 {
			t.Fatalf("run %d: report = %s after %d steps (%v), want exhausted after 4", run, report.Status, report.Steps, report.Error)
		}
		if err := db.SaveRunReport(ctx, report); err != nil {
			t.Fatalf("run %d: SaveRunReport() error = %v", run, err)
		}
		runIDs = append(runIDs, report.PipelineID)

		captures, err := db.RunCaptures(ctx, report.PipelineID)
		if err != nil {
			t.Fatalf("run %d: RunCaptures() error = %v", run, err)
		}
		var got []string
		for _, c := range captures {
			got = append(got, string(c.Payload))
		}
		slices.Sort(got)
		if !slices.Equal(got, wantRun) {
			t.Errorf("run %d: captures = %q, want %q", run, got, wantRun)
		}
	}

	if runIDs[0] == runIDs[1] {
		t.Errorf("both runs have ID %s", runIDs[0])
	}
	all, err := db.Captures(ctx, "keep")
	if err != nil {
		t.Fatalf("Captures() error = %v", err)
	}
	if len(all) != 2*len(wantRun) {
		t.Errorf("Captures() returned %d rows, want %d", len(all), 2*len(wantRun))
	}
	history, err := db.RunHistory(ctx, "keep")
	if err != nil {
		t.Fatalf("RunHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("RunHistory() returned %d runs, want 2", len(history))
	}
}

func TestBuild_StoreLabelDefaultsToRecipeName(t *testing.T) {
	t.Parallel()

	doc := "name: labelled\nhead:\n  kind: texttestsrc\n  with: {limit: 2}\n  sink: {kind: store}\n"
	st := &memStore{}
	p, err := Build(mustParse(t, doc), DefaultRegistry(), Env{Store: st, Logger: log.Discard()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if report := pipeline.Run(t.Context(), p, 0); report.Failed() {
		t.Fatalf("Run() failed: %v", report.Error)
	}
	if got := st.get("labelled"); len(got) != 2 {
		t.Errorf("captures under recipe name = %q, want 2", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		env      Env
		wantErr  error
		wantPath string
	}{
		{
			name:     "unknown kind",
			doc:      "name: x\nhead: {kind: texttestsrc, sink: {kind: nosuch}}",
			wantErr:  ErrUnknownKind,
			wantPath: "head/texttestsrc/nosuch",
		},
		{
			name:     "incompatible format",
			doc:      "name: x\nhead: {kind: texttestsrc, sink: {kind: digest, sink: {kind: stdoutlog}}}",
			wantErr:  stage.ErrIncompatibleFormat,
			wantPath: "head/texttestsrc -> head/texttestsrc/digest",
		},
		{
			name:     "producer without consumer",
			doc:      "name: x\nhead: {kind: texttestsrc, sink: {kind: case, name: shout}}",
			wantErr:  ErrMissingConsumer,
			wantPath: "head/texttestsrc/shout",
		},
		{
			name:     "tail with consumer",
			doc:      "name: x\nhead: {kind: texttestsrc, sink: {kind: stdoutlog, sink: {kind: stdoutlog}}}",
			wantErr:  ErrNotProducer,
			wantPath: "head/texttestsrc/stdoutlog",
		},
		{
			name:    "store without capture store",
			doc:     "name: x\nhead: {kind: texttestsrc, sink: {kind: store}}",
			wantErr: ErrNoStore,
		},
		{
			name:    "demux without backend",
			doc:     "name: x\nhead: {kind: demux, with: {location: 'synthetic:video'}}",
			wantErr: ErrNoBackend,
		},
		{
			name:    "bad option type",
			doc:     "name: x\nhead: {kind: texttestsrc, with: {limit: many}, sink: {kind: stdoutlog}}",
			wantErr: ErrInvalidOption,
		},
		{
			name:    "unknown fan-out slot",
			doc:     "name: x\nhead: {kind: demux, with: {location: 'synthetic:video'}, outputs: {subtitle: {kind: stdoutlog}}}",
			env:     Env{Backend: av.NewSynthetic()},
			wantErr: pipeline.ErrUnknownSlot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build(mustParse(t, tt.doc), DefaultRegistry(), tt.env)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantPath != "" && !strings.Contains(err.Error(), tt.wantPath) {
				t.Errorf("Build() error = %q, want path %q", err, tt.wantPath)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	f := func(*Node, Env) (stage.Stage, error) { return nil, nil }
	if err := reg.Register("a", f); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register("a", f); !errors.Is(err, ErrDuplicateKind) {
		t.Errorf("second Register() error = %v, want ErrDuplicateKind", err)
	}
	if _, ok := reg.Lookup("b"); ok {
		t.Error("Lookup() found an unregistered kind")
	}

	want := []string{
		KindAudioDecoder, KindCase, KindDemux, KindDigest, KindExif, KindFileSrc,
		KindHTMLText, KindStdoutLog, KindStore, KindTextTestSrc, KindVideoDecoder,
	}
	if got := DefaultRegistry().Kinds(); !slices.Equal(got, want) {
		t.Errorf("DefaultRegistry().Kinds() = %q, want %q", got, want)
	}
}
