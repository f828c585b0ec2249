package convert

import (
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Digest keeps a running SHA3-256 over every chunk it receives and sends
// the digest so far after each one:
//
//	sha3-256 <hex> <total bytes>
//
//	Bytes ----> | digest |----> Text
type Digest struct {
	converter
	h     hash.Hash
	total int64
}

// NewDigest returns a digest converter.
func NewDigest() *Digest {
	d := &Digest{h: sha3.New256()}
	d.converter = newConverter("digest", d.update)
	return d
}

func (d *Digest) update(chunk []byte) (string, error) {
	d.h.Write(chunk)
	d.total += int64(len(chunk))
	return fmt.Sprintf("sha3-256 %x %d\n", d.h.Sum(nil), d.total), nil
}
