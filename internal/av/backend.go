package av

// Backend opens demuxers and decoders.
type Backend interface {
	Open(loc Locator) (Demuxer, error)
	OpenDecoder(codec CodecID, params CodecParams) (Decoder, error)
}

// Demuxer reads packets from one opened input.
type Demuxer interface {
	// FindBestStream returns the best stream of kind, or ErrStreamNotFound.
	FindBestStream(kind MediaKind) (Stream, error)

	// ReadNextPacket returns the next packet in input order. It returns
	// ErrEndOfStream once the input is exhausted. The caller owns the
	// packet.
	ReadNextPacket() (*Packet, error)

	// Close frees the input.
	Close() error
}

// Decoder turns packets of one stream into frames.
type Decoder interface {
	// Decode decodes pkt. It does not free pkt.
	Decode(pkt *Packet) ([]Frame, error)

	// Close frees the decoder.
	Close() error
}
