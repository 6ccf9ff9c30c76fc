package comm

import "errors"

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// ErrDiscoverUnsupported is returned by connectors on point-to-point
// transports which can't enumerate controllers.
var ErrDiscoverUnsupported = errors.New("discover unsupported")
