package misc

import (
	"sync"
	"sync/atomic"

	"github.com/nao1215/streamcraft/internal/stage"
)

// TestSink is a tail stage that reports everything it receives to
// callbacks. A callback returning false makes the sink leave its loop.
//
//	???? ----> | testsink |
type TestSink struct {
	role  stage.Role
	input stage.Format

	onMessage func(n int, m stage.Message) bool
	onData    func(n int, p stage.Payload) bool

	messages atomic.Int64
	data     atomic.Int64
	released atomic.Int64

	mu       sync.Mutex
	received []stage.Payload

	done     chan struct{}
	doneOnce sync.Once
}

// SinkOption configures a TestSink.
type SinkOption func(*TestSink)

// OnMessage sets the control message callback. n counts earlier messages.
func OnMessage(fn func(n int, m stage.Message) bool) SinkOption {
	return func(s *TestSink) {
		s.onMessage = fn
	}
}

// OnData sets the data callback. n counts earlier payloads.
func OnData(fn func(n int, p stage.Payload) bool) SinkOption {
	return func(s *TestSink) {
		s.onData = fn
	}
}

// NewTestSink returns a sink of the given role accepting input.
func NewTestSink(role stage.Role, input stage.Format, opts ...SinkOption) *TestSink {
	s := &TestSink{
		role:  role,
		input: input,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements stage.Stage.
func (s *TestSink) Name() string { return "testsink" }

// Role implements stage.Stage.
func (s *TestSink) Role() stage.Role { return s.role }

// Shape implements stage.Stage.
func (s *TestSink) Shape() stage.Shape { return stage.Shape{Input: s.input} }

// AdoptParent implements stage.Stage.
func (s *TestSink) AdoptParent(stage.Parent) {}

// Execute runs until Terminate, conduit closure or a callback returning
// false. Terminate is reported to the message callback before the loop
// ends.
func (s *TestSink) Execute(inbound <-chan stage.Datagram) error {
	defer s.doneOnce.Do(func() { close(s.done) })

	for d := range inbound {
		if d.IsControl() {
			n := int(s.messages.Add(1) - 1)
			if s.onMessage != nil && !s.onMessage(n, d.Message()) {
				return nil
			}
			if d.Message() == stage.Terminate {
				return nil
			}
			continue
		}

		n := int(s.data.Add(1) - 1)
		s.mu.Lock()
		s.received = append(s.received, d.Payload())
		s.mu.Unlock()
		if s.onData != nil && !s.onData(n, d.Payload()) {
			return nil
		}
	}
	return nil
}

// Release counts releases. It never fails.
func (s *TestSink) Release() error {
	s.released.Add(1)
	return nil
}

// Done is closed once Execute has returned.
func (s *TestSink) Done() <-chan struct{} {
	return s.done
}

// Messages returns the number of control messages received.
func (s *TestSink) Messages() int { return int(s.messages.Load()) }

// DataCount returns the number of payloads received.
func (s *TestSink) DataCount() int { return int(s.data.Load()) }

// Released returns the number of Release calls.
func (s *TestSink) Released() int { return int(s.released.Load()) }

// Received returns a copy of the payloads received so far.
func (s *TestSink) Received() []stage.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stage.Payload(nil), s.received...)
}

// Texts returns the text payloads received so far.
func (s *TestSink) Texts() []string {
	var out []string
	for _, p := range s.Received() {
		if t, ok := p.(stage.Text); ok {
			out = append(out, string(t))
		}
	}
	return out
}
