// Package stage defines the contract every processing stage implements and
// the values stages exchange.
//
// A stage declares its shape (the Format it accepts, if any, and the Formats
// it emits) and its Role. Producers check both against each consumer when a
// link is made, so an incompatible chain is rejected before any worker
// starts:
//
//	if err := stage.CheckLink(slot, consumer); err != nil {
//	    return err // ErrIncompatibleFormat or ErrIncompatibleRole
//	}
//
// Adjacent stages talk over two conduits. Datagrams flow downstream over a
// rendezvous channel owned by the pipeline package. Acknowledgements flow
// upstream over an unbounded queue: the stage holds a send-only Parent
// handle and its owner holds the receiving Acks end, so a stage never
// references the object that owns it.
package stage
