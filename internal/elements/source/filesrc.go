package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 4096

// ErrUnsupportedLocator is returned for a locator whose scheme FileSrc
// cannot open.
var ErrUnsupportedLocator = errors.New("unsupported locator")

// FileSrc is a head stage that sends one fixed-size chunk of its input per
// Iterate. The last chunk may be short. Once the input is exhausted the
// source finishes.
//
//	+---------+
//	| filesrc |----> Bytes
//	+---------+
type FileSrc struct {
	r         io.Reader
	closer    io.Closer
	chunkSize int
	eof       bool
	total     int64

	out       *pipeline.Output
	parent    stage.Parent
	closeOnce sync.Once
}

// Option configures a FileSrc.
type Option func(*FileSrc)

// WithChunkSize sets the chunk size. Non-positive sizes are ignored.
func WithChunkSize(n int) Option {
	return func(s *FileSrc) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// New returns a source reading from r. If r is an io.Closer it is closed
// when the stage is released.
func New(r io.Reader, opts ...Option) *FileSrc {
	s := &FileSrc{
		r:         r,
		chunkSize: DefaultChunkSize,
		out:       pipeline.NewOutput(stage.RoleBytesSink, stage.FormatBytes),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a source reading the file named by a "file:" locator.
func Open(loc av.Locator, opts ...Option) (*FileSrc, error) {
	if loc.Scheme() != "file" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, log.RedactLocator(string(loc)))
	}
	f, err := os.Open(loc.Rest())
	if err != nil {
		return nil, fmt.Errorf("filesrc: %w", err)
	}
	log.Named("filesrc").Debug("opened input", "locator", string(loc))
	return New(f, opts...), nil
}

// ChunkSize returns the configured chunk size.
func (s *FileSrc) ChunkSize() int {
	return s.chunkSize
}

// Total returns the number of bytes sent. It is only meaningful after
// teardown.
func (s *FileSrc) Total() int64 {
	return s.total
}

// Name implements stage.Stage.
func (s *FileSrc) Name() string { return "filesrc" }

// Role implements stage.Stage.
func (s *FileSrc) Role() stage.Role { return stage.RoleBytesSrc }

// Shape implements stage.Stage.
func (s *FileSrc) Shape() stage.Shape {
	return stage.Shape{Outputs: []stage.Format{stage.FormatBytes}}
}

// AdoptParent implements stage.Stage.
func (s *FileSrc) AdoptParent(parent stage.Parent) { s.parent = parent }

// Link adopts a bytes sink.
func (s *FileSrc) Link(slot string, consumer stage.Stage) error {
	return s.out.LinkSlot(slot, consumer)
}

// Ready implements stage.Producer.
func (s *FileSrc) Ready() error { return s.out.Ready() }

// Execute implements stage.Stage.
func (s *FileSrc) Execute(inbound <-chan stage.Datagram) error {
	if err := s.out.Open(); err != nil {
		return err
	}
	return stage.Loop{Parent: s.parent, OnIterate: s.next}.Run(inbound)
}

func (s *FileSrc) next() (bool, error) {
	if s.eof {
		return false, nil
	}

	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case errors.Is(err, io.EOF):
		s.eof = true
		return false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
	case err != nil:
		return false, fmt.Errorf("filesrc: read: %w", err)
	}

	if err := s.out.Send(stage.Bytes(buf[:n])); err != nil {
		return false, err
	}
	s.total += int64(n)
	return true, nil
}

// Release terminates the consumer and closes the input.
func (s *FileSrc) Release() error {
	err := s.out.Release()
	s.closeOnce.Do(func() {
		if s.closer != nil {
			err = errors.Join(err, s.closer.Close())
		}
	})
	return err
}
