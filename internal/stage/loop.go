package stage

import "fmt"

// Loop is the receive loop shared by stages.
//
// OnIterate runs once per Iterate; returning false means the stage has run
// out of work and the loop ends without acknowledging. Returning true sends
// IterationComplete upstream. OnData runs once per data payload. A nil
// handler makes the matching datagram kind unexpected.
type Loop struct {
	Parent    Parent
	OnIterate func() (bool, error)
	OnData    func(Payload) error
}

// Run consumes inbound until Terminate, conduit closure, exhaustion, or an
// error.
func (l Loop) Run(inbound <-chan Datagram) error {
	for {
		d, ok := <-inbound
		if !ok {
			return nil
		}

		if !d.IsControl() {
			if l.OnData == nil {
				return fmt.Errorf("%w: %s data", ErrUnexpectedDatagram, d.Payload().Format())
			}
			if err := l.OnData(d.Payload()); err != nil {
				return err
			}
			continue
		}

		switch d.Message() {
		case Terminate:
			return nil
		case Iterate:
			if l.OnIterate == nil {
				return fmt.Errorf("%w: %s", ErrUnexpectedDatagram, d.Message())
			}
			more, err := l.OnIterate()
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			if err := l.Parent.IterationComplete(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnexpectedDatagram, d.Message())
		}
	}
}
