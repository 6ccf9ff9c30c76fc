package buffer

import "sync"

// Inbox accumulates received text.
type Inbox struct {
	data []byte
	lock sync.RWMutex
}

// NewInbox creates an Inbox with capacity in bytes, DefaultSize if
// capacity is not positive.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	return &Inbox{data: make([]byte, 0, capacity)}
}

// AppendText appends text. When it doesn't fit, the text is cut at
// the last whole UTF-8 character that fits and ErrOverflow is returned.
func (b *Inbox) AppendText(text string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	room := cap(b.data) - len(b.data)
	if len(text) <= room {
		b.data = append(b.data, text...)
		return nil
	}
	cut := 0
	for i := range text {
		if i > room {
			break
		}
		cut = i
	}
	b.data = append(b.data, text[:cut]...)
	return ErrOverflow
}

// Text returns the received text.
func (b *Inbox) Text() string {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return string(b.data)
}

// Take returns the received text and clears the inbox.
func (b *Inbox) Take() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	text := string(b.data)
	b.data = b.data[:0]
	return text
}

// Len returns the length in bytes.
func (b *Inbox) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.data)
}

// Cap returns the capacity.
func (b *Inbox) Cap() int {
	return cap(b.data)
}

// Reset clears the inbox.
func (b *Inbox) Reset() {
	b.lock.Lock()
	b.data = b.data[:0]
	b.lock.Unlock()
}
