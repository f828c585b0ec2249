package pipeline

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/streamcraft/internal/stage"
)

// liveCounter counts workers that are inside Execute.
type liveCounter struct {
	n atomic.Int32
}

func (c *liveCounter) enter() {
	if c != nil {
		c.n.Add(1)
	}
}

func (c *liveCounter) leave() {
	if c != nil {
		c.n.Add(-1)
	}
}

func (c *liveCounter) Load() int32 {
	return c.n.Load()
}

// textSrc emits text once per Iterate. A limit of zero means no limit.
type textSrc struct {
	text  string
	limit int
	live  *liveCounter

	out       *Output
	parent    stage.Parent
	emitted   int
	afterSend func(n int)
	released  atomic.Int32
}

func newTextSrc(text string, limit int) *textSrc {
	return &textSrc{
		text:  text,
		limit: limit,
		out:   NewOutput(stage.RoleTextSink, stage.FormatText),
	}
}

func (s *textSrc) Name() string { return "textsrc" }
func (s *textSrc) Role() stage.Role { return stage.RoleTextSrc }
func (s *textSrc) Shape() stage.Shape {
	return stage.Shape{Outputs: []stage.Format{stage.FormatText}}
}
func (s *textSrc) AdoptParent(p stage.Parent) { s.parent = p }
func (s *textSrc) Ready() error { return s.out.Ready() }

func (s *textSrc) Link(slot string, consumer stage.Stage) error {
	if slot != stage.SlotMain {
		return ErrUnknownSlot
	}
	return s.out.Link(consumer)
}

func (s *textSrc) Execute(inbound <-chan stage.Datagram) error {
	s.live.enter()
	defer s.live.leave()

	if err := s.out.Open(); err != nil {
		return err
	}
	return stage.Loop{
		Parent: s.parent,
		OnIterate: func() (bool, error) {
			if s.limit > 0 && s.emitted >= s.limit {
				return false, nil
			}
			if err := s.out.Send(stage.Text(s.text)); err != nil {
				return false, err
			}
			s.emitted++
			if s.afterSend != nil {
				s.afterSend(s.emitted)
			}
			return true, nil
		},
	}.Run(inbound)
}

func (s *textSrc) Release() error {
	s.released.Add(1)
	return s.out.Release()
}

// burstSrc sends n payloads per Iterate.
type burstSrc struct {
	n         int
	out       *Output
	parent    stage.Parent
	afterSend func()
}

func (s *burstSrc) Name() string { return "burstsrc" }
func (s *burstSrc) Role() stage.Role { return stage.RoleTextSrc }
func (s *burstSrc) Shape() stage.Shape {
	return stage.Shape{Outputs: []stage.Format{stage.FormatText}}
}
func (s *burstSrc) AdoptParent(p stage.Parent) { s.parent = p }
func (s *burstSrc) Ready() error { return s.out.Ready() }
func (s *burstSrc) Release() error { return s.out.Release() }

func (s *burstSrc) Link(_ string, consumer stage.Stage) error {
	return s.out.Link(consumer)
}

func (s *burstSrc) Execute(inbound <-chan stage.Datagram) error {
	if err := s.out.Open(); err != nil {
		return err
	}
	return stage.Loop{
		Parent: s.parent,
		OnIterate: func() (bool, error) {
			for range s.n {
				if err := s.out.Send(stage.Text("x")); err != nil {
					return false, err
				}
				s.afterSend()
			}
			return true, nil
		},
	}.Run(inbound)
}

// recordSink records every payload it receives.
type recordSink struct {
	role  stage.Role
	input stage.Format
	delay time.Duration
	live  *liveCounter

	mu       sync.Mutex
	received []stage.Payload
	onData   func()
	failWith error
	released atomic.Int32
}

func newRecordSink(role stage.Role, input stage.Format) *recordSink {
	return &recordSink{role: role, input: input}
}

func (s *recordSink) Name() string { return "recordsink" }
func (s *recordSink) Role() stage.Role { return s.role }
func (s *recordSink) Shape() stage.Shape { return stage.Shape{Input: s.input} }
func (s *recordSink) AdoptParent(stage.Parent) {}
func (s *recordSink) Release() error {
	s.released.Add(1)
	return nil
}

func (s *recordSink) Execute(inbound <-chan stage.Datagram) error {
	s.live.enter()
	defer s.live.leave()

	return stage.Loop{
		OnData: func(p stage.Payload) error {
			s.mu.Lock()
			s.received = append(s.received, p)
			s.mu.Unlock()
			if s.delay > 0 {
				time.Sleep(s.delay)
			}
			if s.onData != nil {
				s.onData()
			}
			return s.failWith
		},
	}.Run(inbound)
}

func (s *recordSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.received))
	for _, p := range s.received {
		if t, ok := p.(stage.Text); ok {
			out = append(out, string(t))
		}
	}
	return out
}

// panicSrc panics on the first Iterate.
type panicSrc struct{}

func (panicSrc) Name() string { return "panicsrc" }
func (panicSrc) Role() stage.Role { return stage.RoleTextSrc }
func (panicSrc) Shape() stage.Shape { return stage.Shape{} }
func (panicSrc) AdoptParent(stage.Parent) {}
func (panicSrc) Release() error { return nil }

func (panicSrc) Execute(inbound <-chan stage.Datagram) error {
	<-inbound
	panic("boom")
}

// quitSrc leaves its loop as soon as it starts.
type quitSrc struct {
	err error
}

func (quitSrc) Name() string { return "quitsrc" }
func (quitSrc) Role() stage.Role { return stage.RoleTextSrc }
func (quitSrc) Shape() stage.Shape { return stage.Shape{} }
func (quitSrc) AdoptParent(stage.Parent) {}
func (quitSrc) Release() error { return nil }
func (q quitSrc) Execute(<-chan stage.Datagram) error { return q.err }

// routedSource yields a fixed list of items, then io.EOF.
type routedSource struct {
	items  []Item
	pos    int
	closed bool
	err    error
}

func (s *routedSource) Next() (Item, error) {
	if s.pos >= len(s.items) {
		if s.err != nil {
			return Item{}, s.err
		}
		return Item{}, io.EOF
	}
	it := s.items[s.pos]
	s.pos++
	return it, nil
}

func (s *routedSource) Close() error {
	s.closed = true
	return nil
}

var errBoom = errors.New("boom")
