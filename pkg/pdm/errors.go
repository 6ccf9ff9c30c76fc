package pdm

import (
	"fmt"
	"time"
)

// ConfigurationError indicates a malformed timing table.
type ConfigurationError struct {
	Field  string
	Value  time.Duration
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid timing %s=%v: %s", e.Field, e.Value, e.Reason)
}
