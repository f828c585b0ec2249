package stage

import (
	"errors"
	"sync"
)

// ErrConduitClosed is returned when a stage acknowledges after its worker
// was already marked as exited.
var ErrConduitClosed = errors.New("acknowledgement conduit closed")

// ackQueue is the unbounded upstream conduit. Sends never block.
type ackQueue struct {
	mu       sync.Mutex
	items    []Message
	closed   bool
	finished bool
	signal   chan struct{}
}

func (q *ackQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// NewUpstream creates an acknowledgement conduit and returns its send-only
// handle and its receiving end.
func NewUpstream() (Parent, *Acks) {
	q := &ackQueue{signal: make(chan struct{}, 1)}
	return Parent{q: q}, &Acks{q: q}
}

// Parent is the send-only handle a stage uses to acknowledge upstream. It
// holds no reference to the stage's owner. The zero value is not adopted.
type Parent struct {
	q *ackQueue
}

// Adopted reports whether the handle is connected to a conduit.
func (p Parent) Adopted() bool {
	return p.q != nil
}

// IterationComplete reports one finished step.
func (p Parent) IterationComplete() error {
	return p.send(IterationComplete)
}

// Finished reports that the worker has left its loop. Only the first call
// enqueues a message, even when calls race.
func (p Parent) Finished() error {
	if p.q == nil {
		return ErrNoParent
	}
	p.q.mu.Lock()
	if p.q.finished {
		p.q.mu.Unlock()
		return nil
	}
	if err := p.q.pushLocked(WorkerFinished); err != nil {
		p.q.mu.Unlock()
		return err
	}
	p.q.mu.Unlock()
	p.q.wake()
	return nil
}

func (p Parent) send(m Message) error {
	if p.q == nil {
		return ErrNoParent
	}
	p.q.mu.Lock()
	err := p.q.pushLocked(m)
	p.q.mu.Unlock()
	if err != nil {
		return err
	}
	p.q.wake()
	return nil
}

// pushLocked enqueues m. The caller holds q.mu.
func (q *ackQueue) pushLocked(m Message) error {
	if q.closed {
		return ErrConduitClosed
	}
	if m == WorkerFinished {
		q.finished = true
	}
	q.items = append(q.items, m)
	return nil
}

// Close marks the sending worker as exited. It is called by the owner of
// the worker goroutine after Execute returns, never by the stage itself.
func (p Parent) Close() {
	if p.q == nil {
		return
	}
	p.q.mu.Lock()
	p.q.closed = true
	p.q.mu.Unlock()
	p.q.wake()
}

// Acks is the receiving end of an acknowledgement conduit.
type Acks struct {
	q *ackQueue
}

// Recv blocks until an acknowledgement is pending. Once the worker has
// finished and every pending message was read, Recv keeps returning
// WorkerFinished. If the worker exited without finishing, Recv returns
// ErrReceiveFailed.
func (a *Acks) Recv() (Message, error) {
	for {
		m, ok, err := a.TryRecv()
		if ok || err != nil {
			return m, err
		}
		<-a.q.signal
	}
}

// TryRecv is the non-blocking form of Recv. It returns false when nothing
// is pending.
func (a *Acks) TryRecv() (Message, bool, error) {
	a.q.mu.Lock()
	defer a.q.mu.Unlock()

	if len(a.q.items) > 0 {
		m := a.q.items[0]
		a.q.items = a.q.items[1:]
		return m, true, nil
	}
	if !a.q.closed {
		return 0, false, nil
	}
	if a.q.finished {
		return WorkerFinished, true, nil
	}
	return 0, false, ErrReceiveFailed
}
