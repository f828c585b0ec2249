package stage

// Message is a control message. Iterate and Terminate travel downstream;
// IterationComplete and WorkerFinished travel upstream.
type Message int

const (
	// Iterate asks the head stage to perform one step.
	Iterate Message = iota + 1
	// IterationComplete acknowledges one finished step.
	IterationComplete
	// Terminate asks a worker to leave its loop.
	Terminate
	// WorkerFinished reports that a worker left its loop for good.
	WorkerFinished
)

// String returns the message name.
func (m Message) String() string {
	switch m {
	case Iterate:
		return "iterate"
	case IterationComplete:
		return "iteration-complete"
	case Terminate:
		return "terminate"
	case WorkerFinished:
		return "worker-finished"
	default:
		return "unknown"
	}
}

// Payload is inter-stage data. Its Format must match the slot it is sent
// through.
type Payload interface {
	Format() Format
}

// Text is a FormatText payload.
type Text string

// Format implements Payload.
func (Text) Format() Format { return FormatText }

// Bytes is a FormatBytes payload. Ownership moves with the datagram; the
// sender must not touch the slice after sending.
type Bytes []byte

// Format implements Payload.
func (Bytes) Format() Format { return FormatBytes }

// Datagram carries either a control message or a data payload down a
// conduit.
type Datagram struct {
	message Message
	payload Payload
}

// Control wraps a control message.
func Control(m Message) Datagram {
	return Datagram{message: m}
}

// Data wraps a payload.
func Data(p Payload) Datagram {
	return Datagram{payload: p}
}

// IsControl reports whether the datagram carries a control message.
func (d Datagram) IsControl() bool {
	return d.payload == nil
}

// Message returns the control message, or zero for data.
func (d Datagram) Message() Message {
	return d.message
}

// Payload returns the data payload, or nil for control datagrams.
func (d Datagram) Payload() Payload {
	return d.payload
}
