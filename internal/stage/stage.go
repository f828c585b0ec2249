package stage

// Format identifies the shape of data flowing between two stages.
// Two formats are compatible only when they are equal.
type Format string

const (
	// FormatNone marks a missing input or output.
	FormatNone Format = ""
	// FormatText is UTF-8 text carried as Text.
	FormatText Format = "text"
	// FormatBytes is an opaque byte chunk carried as Bytes.
	FormatBytes Format = "bytes"
	// FormatPacket is a demuxed media packet owned by the native collaborator.
	FormatPacket Format = "packet"
)

// String returns the format name, or "none" for FormatNone.
func (f Format) String() string {
	if f == FormatNone {
		return "none"
	}
	return string(f)
}

// Role is the semantic classification of a stage. A producer's output slot
// names the role it expects from its consumer in addition to the format.
type Role string

// Roles used by the built-in stages.
const (
	RoleTextSrc         Role = "text-src"
	RoleTextSink        Role = "text-sink"
	RoleBytesSrc        Role = "bytes-src"
	RoleBytesSink       Role = "bytes-sink"
	RolePacketSrc       Role = "packet-src"
	RoleVideoPacketSink Role = "video-packet-sink"
	RoleAudioPacketSink Role = "audio-packet-sink"
)

// Shape is the declared input and output formats of a stage.
// A stage with no input may only head a pipeline; a stage with no outputs
// may only end a chain. Two outputs make the stage a fan-out.
type Shape struct {
	Input   Format
	Outputs []Format
}

// HasInput reports whether the stage accepts data from a parent.
func (s Shape) HasInput() bool {
	return s.Input != FormatNone
}

// IsTail reports whether the stage declares no outputs.
func (s Shape) IsTail() bool {
	return len(s.Outputs) == 0
}

// IsFanOut reports whether the stage declares more than one output.
func (s Shape) IsFanOut() bool {
	return len(s.Outputs) > 1
}

// Stage is an independently executing processing unit.
//
// A stage is constructed detached, adopted by exactly one runner, moved
// into a worker goroutine when that runner spawns, and released after its
// worker returns.
type Stage interface {
	// Name returns a short name used in logs.
	Name() string

	// Role classifies the stage for link-time role matching.
	Role() Role

	// Shape describes the declared input and output formats.
	Shape() Shape

	// Execute consumes inbound until it observes Terminate, the conduit is
	// closed, or the stage runs out of work. It is the only method
	// expected to block.
	Execute(inbound <-chan Datagram) error

	// AdoptParent installs the handle used to acknowledge upstream.
	AdoptParent(parent Parent)

	// Release closes owned downstream conduits and joins owned child
	// workers. It must be idempotent and safe to call when Execute never
	// ran.
	Release() error
}

// Producer is a Stage with at least one output slot.
type Producer interface {
	Stage

	// Link adopts consumer into the named output slot after checking it
	// against the slot's expected role and format. Single-output stages
	// accept SlotMain.
	Link(slot string, consumer Stage) error

	// Ready reports an error if any declared output slot, here or further
	// down the chain, has nothing adopted.
	Ready() error
}

// SlotMain names the output slot of a single-output producer.
const SlotMain = ""
