package av

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors, one per failure class of the collaborator.
var (
	// ErrOpen is returned when a locator cannot be opened.
	ErrOpen = errors.New("failed to open input")
	// ErrStreamNotFound is returned when no stream of the requested kind
	// exists.
	ErrStreamNotFound = errors.New("failed to find best stream")
	// ErrEndOfStream is returned by ReadNextPacket when the input is
	// exhausted. It wraps io.EOF.
	ErrEndOfStream = fmt.Errorf("end of stream: %w", io.EOF)
	// ErrRead is returned when a packet cannot be read.
	ErrRead = errors.New("failed to read packet")
	// ErrDecoder is returned when no decoder can be opened for a codec.
	ErrDecoder = errors.New("failed to open decoder")
	// ErrDecode is returned when a packet cannot be decoded.
	ErrDecode = errors.New("failed to decode packet")
	// ErrAlloc is returned when a native allocation fails.
	ErrAlloc = errors.New("failed to allocate")
)

// Op names the collaborator call that failed.
type Op string

// Collaborator calls.
const (
	OpOpen        Op = "open"
	OpFindStream  Op = "find_best_stream"
	OpRead        Op = "read_next_packet"
	OpOpenDecoder Op = "open_decoder"
	OpDecode      Op = "decode"
	OpAlloc       Op = "alloc"
)

// Native return codes with a fixed meaning.
const (
	CodeEOF    = -541478725
	CodeNoMem  = -12
	CodeInval  = -22
	CodeNoEnt  = -2
	CodeIO     = -5
	CodeClosed = -32

	CodeStreamNotFound  = -1381258232
	CodeDecoderNotFound = -1128613112
	CodeInvalidData     = -1094995529
)

var opErrors = map[Op]error{
	OpOpen:        ErrOpen,
	OpFindStream:  ErrStreamNotFound,
	OpRead:        ErrRead,
	OpOpenDecoder: ErrDecoder,
	OpDecode:      ErrDecode,
	OpAlloc:       ErrAlloc,
}

// Error is a collaborator failure. Code is the native return code, or zero
// when the failure did not come with one.
type Error struct {
	Op   Op
	Code int
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("av: %s: %v (code %d)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("av: %s: %v", e.Op, e.Err)
}

// Unwrap returns the sentinel error.
func (e *Error) Unwrap() error {
	return e.Err
}

// FromCode maps a native return code of op onto the error taxonomy. A
// non-negative code is success and yields nil. CodeEOF always maps to
// ErrEndOfStream and CodeNoMem to ErrAlloc; every other negative code maps
// to the sentinel of op.
func FromCode(op Op, code int) error {
	if code >= 0 {
		return nil
	}

	var err error
	switch code {
	case CodeEOF:
		err = ErrEndOfStream
	case CodeNoMem:
		err = ErrAlloc
	default:
		var ok bool
		if err, ok = opErrors[op]; !ok {
			err = fmt.Errorf("unknown operation %q", op)
		}
	}
	return &Error{Op: op, Code: code, Err: err}
}
