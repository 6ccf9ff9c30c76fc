package laser

import (
	"errors"
	"fmt"
)

var (
	// ErrReceiveInProgress indicates another receive session is open.
	ErrReceiveInProgress = errors.New("receive in progress")
	// ErrTransmitInProgress indicates another transmit is driving the laser.
	ErrTransmitInProgress = errors.New("transmit in progress")
	// ErrNotAttached indicates the session has no edge handler installed.
	ErrNotAttached = errors.New("session not attached")
)

// RangeError rejects a transmit range outside the buffer.
type RangeError struct {
	Start int
	End   int
	Len   int
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("transmit range [%d, %d) out of buffer length %d", e.Start, e.End, e.Len)
}

// Outcome is the informational result of a session operation.
type Outcome int

// Outcomes
const (
	OK Outcome = iota
	NothingToTransmit
	NoDataReceived
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NothingToTransmit:
		return "nothing to transmit"
	case NoDataReceived:
		return "no data received"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}
