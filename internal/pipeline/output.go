package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/streamcraft/internal/stage"
)

// Output is one declared output slot of a producer: the role and format it
// expects from its consumer and the Runner that owns the consumer once
// linked.
type Output struct {
	slot   stage.Slot
	runner Runner
}

// NewOutput returns an unlinked output slot.
func NewOutput(role stage.Role, format stage.Format) *Output {
	return &Output{slot: stage.Slot{Role: role, Format: format}}
}

// Slot returns the expected role and format.
func (o *Output) Slot() stage.Slot {
	return o.slot
}

// Link checks consumer against the slot and adopts it. A rejected consumer
// is left untouched.
func (o *Output) Link(consumer stage.Stage) error {
	if err := stage.CheckLink(o.slot, consumer); err != nil {
		return err
	}
	return o.runner.Adopt(consumer)
}

// LinkSlot is Link for single-output producers. Any slot name other than
// stage.SlotMain is rejected with ErrUnknownSlot.
func (o *Output) LinkSlot(slot string, consumer stage.Stage) error {
	if slot != stage.SlotMain {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return o.Link(consumer)
}

// Linked reports whether a consumer is adopted or running.
func (o *Output) Linked() bool {
	s := o.runner.State()
	return s == StateAdopted || s == StateRunning
}

// Ready reports an error if the slot, or any slot below its consumer, is
// unlinked.
func (o *Output) Ready() error {
	if err := o.runner.Ready(); err != nil {
		return fmt.Errorf("%s %s output: %w", o.slot.Format, o.slot.Role, err)
	}
	return nil
}

// Open spawns the linked consumer's worker.
func (o *Output) Open() error {
	if o.runner.State() == StateRunning {
		return nil
	}
	return o.runner.Spawn()
}

// Send hands p to the consumer and returns once the consumer has received
// it.
func (o *Output) Send(p stage.Payload) error {
	return o.runner.SendData(p)
}

// Release asks the consumer to terminate and joins it. A consumer that
// already exited is not an error by itself, but if the consumer failed its
// failure is returned wrapped in ErrConsumerFailed. Release is idempotent.
func (o *Output) Release() error {
	if o.runner.State() == StateRunning {
		if err := o.runner.SendControl(stage.Terminate); err != nil && !errors.Is(err, ErrSendFailed) {
			return err
		}
	}
	if err := o.runner.Close(); err != nil {
		return err
	}
	if err := o.runner.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConsumerFailed, o.runner.name, err)
	}
	return nil
}
