package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/streamcraft/internal/log"
)

// DefaultExifLimit bounds how many bytes Exif buffers while looking for
// metadata.
const DefaultExifLimit = 1 << 20

// exifSignatureLen is the length of the TIFF byte order signatures
// ("II*\x00", "MM\x00*") the search looks for.
const exifSignatureLen = 4

// Exif buffers incoming chunks until EXIF metadata can be extracted from
// them, then sends every tag once as "Name: value" lines. Input past the
// limit is ignored.
//
// Every buffered byte is searched for a signature once. After a signature
// is found, later chunks only retry parsing the block that starts there.
//
//	Bytes ----> | exif |----> Text
type Exif struct {
	converter
	limit   int
	buf     []byte
	scanned int // buf[:scanned] holds no signature start
	header  int // offset of the signature, or -1
	done    bool
	search  func([]byte) ([]byte, error)
	logger  *slog.Logger
}

// NewExif returns an EXIF extractor buffering at most limit bytes. A
// non-positive limit selects DefaultExifLimit.
func NewExif(limit int) *Exif {
	if limit <= 0 {
		limit = DefaultExifLimit
	}
	e := &Exif{
		limit:  limit,
		header: -1,
		search: exif.SearchAndExtractExif,
		logger: log.Named("exif"),
	}
	e.converter = newConverter("exif", e.scan)
	return e
}

func (e *Exif) scan(chunk []byte) (string, error) {
	if e.done || len(e.buf) >= e.limit {
		return "", nil
	}
	room := e.limit - len(e.buf)
	if len(chunk) > room {
		chunk = chunk[:room]
	}
	e.buf = append(e.buf, chunk...)

	raw, ok := e.block()
	if !ok {
		return "", nil
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		// The metadata block may be cut short; wait for more input.
		return "", nil
	}
	e.done = true
	e.buf = nil

	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s: %s\n", entry.TagName, entry.Formatted)
	}
	return b.String(), nil
}

// block returns the buffered bytes from the signature on, searching only
// the bytes no earlier call has searched.
func (e *Exif) block() ([]byte, bool) {
	if e.header >= 0 {
		return e.buf[e.header:], true
	}

	raw, err := e.search(e.buf[e.scanned:])
	if err != nil {
		if !errors.Is(err, exif.ErrNoExif) {
			e.logger.Debug("exif search failed", "error", err, "buffered", len(e.buf))
		}
		// A signature may straddle this chunk and the next.
		e.scanned = max(0, len(e.buf)-exifSignatureLen+1)
		return nil, false
	}
	e.header = len(e.buf) - len(raw)
	return raw, true
}
