package pipeline

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/streamcraft/internal/stage"
)

func newTextPipeline(t *testing.T, text string, limit int) (*Pipeline, *textSrc, *recordSink) {
	t.Helper()

	src := newTextSrc(text, limit)
	sink := newRecordSink(stage.RoleTextSink, stage.FormatText)
	if err := src.Link(stage.SlotMain, sink); err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	p, err := New(src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, src, sink
}

func TestPipeline_StepDeliversEveryIteration(t *testing.T) {
	t.Parallel()

	p, _, sink := newTextPipeline(t, "Test\n", 0)
	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	for i := range 3 {
		outcome, err := p.Step()
		if err != nil {
			t.Fatalf("Step() #%d error = %v", i+1, err)
		}
		if outcome != Progressed {
			t.Fatalf("Step() #%d = %s, want progressed", i+1, outcome)
		}
	}
	if err := p.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}

	want := []string{"Test\n", "Test\n", "Test\n"}
	if got := sink.texts(); !slices.Equal(got, want) {
		t.Errorf("sink received %q, want %q", got, want)
	}
	if got := p.Steps(); got != 3 {
		t.Errorf("Steps() = %d, want 3", got)
	}
}

func TestPipeline_ExhaustionIsSticky(t *testing.T) {
	t.Parallel()

	p, _, sink := newTextPipeline(t, "a", 2)
	defer p.Teardown() //nolint:errcheck

	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	want := []Outcome{Progressed, Progressed, Exhausted, Exhausted, Exhausted}
	for i, w := range want {
		got, err := p.Step()
		if err != nil {
			t.Fatalf("Step() #%d error = %v", i+1, err)
		}
		if got != w {
			t.Fatalf("Step() #%d = %s, want %s", i+1, got, w)
		}
	}
	if err := p.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if got := len(sink.texts()); got != 2 {
		t.Errorf("sink received %d items, want 2", got)
	}
}

func TestPipeline_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("step before init", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTextPipeline(t, "x", 0)
		defer p.Teardown() //nolint:errcheck

		if _, err := p.Step(); !errors.Is(err, ErrNotReady) {
			t.Errorf("Step() error = %v, want ErrNotReady", err)
		}
	})

	t.Run("init twice", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTextPipeline(t, "x", 0)
		defer p.Teardown() //nolint:errcheck

		if err := p.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Init(); !errors.Is(err, ErrAlreadyRunning) {
			t.Errorf("second Init() error = %v, want ErrAlreadyRunning", err)
		}
	})

	t.Run("unlinked output", func(t *testing.T) {
		t.Parallel()
		src := newTextSrc("x", 0)
		p, err := New(src)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer p.Teardown() //nolint:errcheck

		err = p.Init()
		if !errors.Is(err, ErrNotReady) || !errors.Is(err, ErrNoStageAdopted) {
			t.Errorf("Init() error = %v, want ErrNotReady wrapping ErrNoStageAdopted", err)
		}
	})

	t.Run("head with input", func(t *testing.T) {
		t.Parallel()
		sink := newRecordSink(stage.RoleTextSink, stage.FormatText)
		if _, err := New(sink); !errors.Is(err, stage.ErrIncompatibleFormat) {
			t.Errorf("New() error = %v, want ErrIncompatibleFormat", err)
		}
	})

	t.Run("nil head", func(t *testing.T) {
		t.Parallel()
		if _, err := New(nil); !errors.Is(err, ErrNoStageAdopted) {
			t.Errorf("New(nil) error = %v, want ErrNoStageAdopted", err)
		}
	})

	t.Run("step after teardown", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTextPipeline(t, "x", 0)
		if err := p.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Teardown(); err != nil {
			t.Fatalf("Teardown() error = %v", err)
		}
		if _, err := p.Step(); !errors.Is(err, ErrNotReady) {
			t.Errorf("Step() error = %v, want ErrNotReady", err)
		}
		if err := p.Init(); !errors.Is(err, ErrNotReady) {
			t.Errorf("Init() error = %v, want ErrNotReady", err)
		}
	})
}

func TestPipeline_TeardownIsIdempotent(t *testing.T) {
	t.Parallel()

	p, src, sink := newTextPipeline(t, "x", 0)
	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := p.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	for i := range 3 {
		if err := p.Teardown(); err != nil {
			t.Fatalf("Teardown() #%d error = %v", i+1, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := src.released.Load(); got != 1 {
		t.Errorf("source released %d times, want 1", got)
	}
	if got := sink.released.Load(); got != 1 {
		t.Errorf("sink released %d times, want 1", got)
	}
}

func TestPipeline_TeardownWithoutInitReleasesChain(t *testing.T) {
	t.Parallel()

	p, src, sink := newTextPipeline(t, "x", 0)
	if err := p.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if src.released.Load() != 1 || sink.released.Load() != 1 {
		t.Errorf("released src=%d sink=%d, want 1 and 1", src.released.Load(), sink.released.Load())
	}
}

func TestPipeline_TeardownJoinsEveryWorker(t *testing.T) {
	t.Parallel()

	live := &liveCounter{}
	src := newTextSrc("x", 0)
	src.live = live
	sink := newRecordSink(stage.RoleTextSink, stage.FormatText)
	sink.live = live
	sink.delay = 5 * time.Millisecond
	if err := src.Link(stage.SlotMain, sink); err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	p, err := New(src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	for range 4 {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
	if got := live.Load(); got != 2 {
		t.Errorf("live workers before teardown = %d, want 2", got)
	}
	if err := p.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if got := live.Load(); got != 0 {
		t.Errorf("live workers after teardown = %d, want 0", got)
	}
}

func TestPipeline_Backpressure(t *testing.T) {
	t.Parallel()

	var sent, processed atomic.Int64
	var maxAhead atomic.Int64

	src := &burstSrc{n: 8, out: NewOutput(stage.RoleTextSink, stage.FormatText)}
	src.afterSend = func() {
		ahead := sent.Add(1) - processed.Load()
		for {
			cur := maxAhead.Load()
			if ahead <= cur || maxAhead.CompareAndSwap(cur, ahead) {
				break
			}
		}
	}
	sink := newRecordSink(stage.RoleTextSink, stage.FormatText)
	sink.delay = 2 * time.Millisecond
	sink.onData = func() { processed.Add(1) }
	if err := src.Link(stage.SlotMain, sink); err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	p, err := New(src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	for range 2 {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
	if err := p.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}

	if got := maxAhead.Load(); got > 1 {
		t.Errorf("producer got %d items ahead of consumer, want at most 1", got)
	}
	if got := processed.Load(); got != 16 {
		t.Errorf("consumer processed %d items, want 16", got)
	}
}

func TestPipeline_HeadPanicIsReceiveFailed(t *testing.T) {
	t.Parallel()

	p, err := New(panicSrc{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Teardown() //nolint:errcheck

	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	outcome, err := p.Step()
	if !errors.Is(err, stage.ErrReceiveFailed) {
		t.Fatalf("Step() error = %v, want ErrReceiveFailed", err)
	}
	if outcome != Exhausted {
		t.Errorf("Step() = %s, want exhausted", outcome)
	}

	outcome, err = p.Step()
	if err != nil || outcome != Exhausted {
		t.Errorf("second Step() = %s, %v; want exhausted, nil", outcome, err)
	}
	if err := p.Teardown(); err != nil {
		t.Errorf("Teardown() error = %v", err)
	}
}

func TestPipeline_HeadErrorStillFinishes(t *testing.T) {
	t.Parallel()

	p, err := New(quitSrc{err: errBoom})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Teardown() //nolint:errcheck

	if err := p.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	outcome, err := p.Step()
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if outcome != Exhausted {
		t.Errorf("Step() = %s, want exhausted", outcome)
	}
}

func TestRun_RecordsStageFailures(t *testing.T) {
	t.Parallel()

	t.Run("head failure", func(t *testing.T) {
		t.Parallel()
		p, err := New(quitSrc{err: errBoom})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		report := Run(context.Background(), p, 0)
		if !report.Failed() {
			t.Fatalf("Status = %s, want failed", report.Status)
		}
		if !errors.Is(report.Error, errBoom) {
			t.Errorf("Error = %v, want errBoom", report.Error)
		}
		if errors.Is(report.Error, ErrConsumerFailed) {
			t.Errorf("Error = %v, head failure reported as a consumer failure", report.Error)
		}
	})

	t.Run("sink failure reaches the report", func(t *testing.T) {
		t.Parallel()
		p, _, sink := newTextPipeline(t, "x", 0)
		sink.failWith = errBoom

		report := Run(context.Background(), p, 0)
		if !report.Failed() {
			t.Fatalf("Status = %s, want failed", report.Status)
		}
		for _, want := range []error{errBoom, ErrConsumerFailed, ErrSendFailed} {
			if !errors.Is(report.Error, want) {
				t.Errorf("Error = %v, want it to match %v", report.Error, want)
			}
		}
		if report.Steps != 1 {
			t.Errorf("Steps = %d, want 1", report.Steps)
		}
		if report.ErrorMessage == "" {
			t.Error("ErrorMessage is empty")
		}
	})

	t.Run("clean run has no failure", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTextPipeline(t, "x", 2)

		report := Run(context.Background(), p, 0)
		if report.Failed() || report.Status != "exhausted" {
			t.Errorf("Status = %s (%v), want exhausted", report.Status, report.Error)
		}
		if err := p.Err(); err != nil {
			t.Errorf("Err() = %v, want nil", err)
		}
	})
}

func TestPipeline_AutomaticTeardown(t *testing.T) {
	t.Parallel()

	live := &liveCounter{}
	func() {
		src := newTextSrc("x", 0)
		src.live = live
		sink := newRecordSink(stage.RoleTextSink, stage.FormatText)
		sink.live = live
		if err := src.Link(stage.SlotMain, sink); err != nil {
			t.Fatalf("Link() error = %v", err)
		}
		p, err := New(src)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := p.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for live.Load() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("workers still live after pipeline became unreachable: %d", live.Load())
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipeline_IDAndName(t *testing.T) {
	t.Parallel()

	a, _, _ := newTextPipeline(t, "x", 0)
	defer a.Teardown() //nolint:errcheck
	b, err := New(newTextSrc("x", 0), WithName("custom"), WithLogger(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Teardown() //nolint:errcheck

	if a.ID() == b.ID() {
		t.Error("two pipelines share an ID")
	}
	if a.Name() != "textsrc" {
		t.Errorf("Name() = %q, want textsrc", a.Name())
	}
	if b.Name() != "custom" {
		t.Errorf("Name() = %q, want custom", b.Name())
	}
}

func TestDrain(t *testing.T) {
	t.Parallel()

	t.Run("until exhausted", func(t *testing.T) {
		t.Parallel()
		p, _, sink := newTextPipeline(t, "x", 5)
		defer p.Teardown() //nolint:errcheck
		if err := p.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		steps, outcome, err := Drain(context.Background(), p, 0)
		if err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
		if steps != 5 || outcome != Exhausted {
			t.Errorf("Drain() = %d, %s; want 5, exhausted", steps, outcome)
		}
		if err := p.Teardown(); err != nil {
			t.Fatalf("Teardown() error = %v", err)
		}
		if got := len(sink.texts()); got != 5 {
			t.Errorf("sink received %d items, want 5", got)
		}
	})

	t.Run("step limit", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTextPipeline(t, "x", 0)
		defer p.Teardown() //nolint:errcheck
		if err := p.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		steps, outcome, err := Drain(context.Background(), p, 3)
		if err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
		if steps != 3 || outcome != Progressed {
			t.Errorf("Drain() = %d, %s; want 3, progressed", steps, outcome)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTextPipeline(t, "x", 0)
		defer p.Teardown() //nolint:errcheck
		if err := p.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		steps, _, err := Drain(ctx, p, 0)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Drain() error = %v, want context.Canceled", err)
		}
		if steps != 0 {
			t.Errorf("Drain() steps = %d, want 0", steps)
		}
	})
}
