package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/streamcraft/internal/stage"
)

// Item is one routed payload pulled from a Source.
type Item struct {
	Route   string
	Payload stage.Payload
}

// Source supplies the items a FanOut routes. Next returns io.EOF, or an
// error wrapping it, when there is nothing left.
type Source interface {
	Next() (Item, error)
}

// SlotSpec declares one output slot of a FanOut.
type SlotSpec struct {
	Route  string
	Role   stage.Role
	Format stage.Format
}

type branch struct {
	route string
	out   *Output
}

// FanOut is a head stage with two output slots. On every Iterate it pulls
// one item from its Source and sends it to the slot whose route matches the
// item. Items matching neither route are dropped.
type FanOut struct {
	name     string
	role     stage.Role
	source   Source
	branches [2]branch
	parent   stage.Parent
	onDrop   func(Item)
	dropped  atomic.Int64

	releaseOnce sync.Once
	releaseErr  error
}

// NewFanOut returns a fan-out over src with the two given slots.
func NewFanOut(name string, role stage.Role, src Source, a, b SlotSpec) *FanOut {
	return &FanOut{
		name:   name,
		role:   role,
		source: src,
		branches: [2]branch{
			{route: a.Route, out: NewOutput(a.Role, a.Format)},
			{route: b.Route, out: NewOutput(b.Role, b.Format)},
		},
	}
}

// OnDrop registers fn to be called with every item that was not delivered:
// items matching no route and items whose branch had already exited. It
// must be called before the pipeline is initialized.
func (f *FanOut) OnDrop(fn func(Item)) {
	f.onDrop = fn
}

// Dropped returns the number of items that matched no route.
func (f *FanOut) Dropped() int64 {
	return f.dropped.Load()
}

// Name implements stage.Stage.
func (f *FanOut) Name() string { return f.name }

// Role implements stage.Stage.
func (f *FanOut) Role() stage.Role { return f.role }

// Shape implements stage.Stage.
func (f *FanOut) Shape() stage.Shape {
	return stage.Shape{
		Input: stage.FormatNone,
		Outputs: []stage.Format{
			f.branches[0].out.Slot().Format,
			f.branches[1].out.Slot().Format,
		},
	}
}

// AdoptParent implements stage.Stage.
func (f *FanOut) AdoptParent(parent stage.Parent) {
	f.parent = parent
}

// Link adopts consumer into the slot named by route. The consumer is checked
// against that slot only.
func (f *FanOut) Link(route string, consumer stage.Stage) error {
	for _, b := range f.branches {
		if b.route == route {
			if err := b.out.Link(consumer); err != nil {
				return fmt.Errorf("%s slot %q: %w", f.name, route, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no slot %q", ErrUnknownSlot, f.name, route)
}

// Ready implements stage.Producer.
func (f *FanOut) Ready() error {
	for _, b := range f.branches {
		if err := b.out.Ready(); err != nil {
			return fmt.Errorf("%s slot %q: %w", f.name, b.route, err)
		}
	}
	return nil
}

// Execute implements stage.Stage.
func (f *FanOut) Execute(inbound <-chan stage.Datagram) error {
	for _, b := range f.branches {
		if err := b.out.Open(); err != nil {
			return fmt.Errorf("%s slot %q: %w", f.name, b.route, err)
		}
	}
	return stage.Loop{Parent: f.parent, OnIterate: f.iterate}.Run(inbound)
}

func (f *FanOut) iterate() (bool, error) {
	item, err := f.source.Next()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: read: %w", f.name, err)
	}

	for _, b := range f.branches {
		if b.route == item.Route {
			if err := b.out.Send(item.Payload); err != nil {
				f.discard(item)
				return false, fmt.Errorf("%s slot %q: %w", f.name, b.route, err)
			}
			return true, nil
		}
	}

	f.dropped.Add(1)
	f.discard(item)
	return true, nil
}

func (f *FanOut) discard(item Item) {
	if f.onDrop != nil {
		f.onDrop(item)
	}
}

// Release terminates and joins both branches concurrently, then closes the
// source if it is an io.Closer.
//
// Design decision: the branches are joined with an errgroup instead of one
// after the other. A branch blocked on a slow write would otherwise hold up
// the release of its sibling. Each branch keeps its own error, so a run
// whose sinks both failed reports both failures.
func (f *FanOut) Release() error {
	f.releaseOnce.Do(func() {
		var (
			g    errgroup.Group
			errs [2]error
		)
		for i, b := range f.branches {
			g.Go(func() error {
				errs[i] = b.out.Release()
				return nil
			})
		}
		_ = g.Wait()
		err := errors.Join(errs[:]...)
		if c, ok := f.source.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
		f.releaseErr = err
	})
	return f.releaseErr
}
