package embedding

import (
	"fmt"
	"strings"
)

// InitializationError reports that every configured backend failed to
// open. The index stays uninitialized, so a later call may retry.
type InitializationError struct {
	Causes []error
}

func (e *InitializationError) Error() string {
	if len(e.Causes) == 0 {
		return "no embedding backends configured"
	}
	msgs := make([]string, len(e.Causes))
	for i, cause := range e.Causes {
		msgs[i] = cause.Error()
	}
	return fmt.Sprintf("all embedding backends failed to initialize: %s", strings.Join(msgs, "; "))
}

// Unwrap exposes the per-backend failures to errors.Is and errors.As.
func (e *InitializationError) Unwrap() []error {
	return e.Causes
}

// DimensionMismatchError reports a similarity computation over vectors
// of unequal length.
type DimensionMismatchError struct {
	LenA int
	LenB int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d vs %d", e.LenA, e.LenB)
}

// ConfigurationError reports invalid parameters handed to the embedding
// layer, such as a chunk overlap at or above the chunk size.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}
