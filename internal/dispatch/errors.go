package dispatch

import (
	"errors"
	"fmt"
)

// QueryError wraps any failure of the status endpoint: network, timeout, or
// a non-2xx response. The monitor treats every QueryError the same way, so
// no finer-grained taxonomy is exposed.
type QueryError struct {
	RequestID string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query stage %s: %v", e.RequestID, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CreationError reports a failed trip creation with a human-readable reason
// suitable for relaying to the operator.
type CreationError struct {
	Reason string
}

func (e *CreationError) Error() string {
	return "create ride request: " + e.Reason
}

// IsCreationError reports whether err is (or wraps) a CreationError.
func IsCreationError(err error) bool {
	var ce *CreationError
	return errors.As(err, &ce)
}
