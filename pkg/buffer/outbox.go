// Package buffer provides the fixed-size message buffers a link node
// transmits from and receives into.
package buffer

import (
	"errors"
	"sync"
)

// DefaultSize is the default capacity in bytes of both buffers.
const DefaultSize = 1024

var (
	// ErrOverflow indicates the data doesn't fit in the buffer. The
	// leading part that fits is kept.
	ErrOverflow = errors.New("buffer overflow")
)

// Outbox holds the outbound message.
type Outbox struct {
	data []byte
	lock sync.RWMutex
}

// NewOutbox creates an Outbox with capacity in bytes, DefaultSize if
// capacity is not positive.
func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	return &Outbox{data: make([]byte, 0, capacity)}
}

// Write replaces the message.
func (b *Outbox) Write(p []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.data = b.data[:0]
	return b.appendLocked(p)
}

// WriteString replaces the message with text.
func (b *Outbox) WriteString(s string) error {
	return b.Write([]byte(s))
}

// Append adds to the end of the message.
func (b *Outbox) Append(p []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.appendLocked(p)
}

func (b *Outbox) appendLocked(p []byte) error {
	room := cap(b.data) - len(b.data)
	if len(p) > room {
		b.data = append(b.data, p[:room]...)
		return ErrOverflow
	}
	b.data = append(b.data, p...)
	return nil
}

// Len returns the message length.
func (b *Outbox) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.data)
}

// Cap returns the capacity.
func (b *Outbox) Cap() int {
	return cap(b.data)
}

// Bytes returns a copy of the message.
func (b *Outbox) Bytes() []byte {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return append([]byte(nil), b.data...)
}

// Reset clears the message.
func (b *Outbox) Reset() {
	b.lock.Lock()
	b.data = b.data[:0]
	b.lock.Unlock()
}
