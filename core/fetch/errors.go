package fetch

import (
	"errors"
	"fmt"
)

// ErrExhausted reports that every attempt of a retried request failed.
var ErrExhausted = errors.New("fetch attempts exhausted")

// Error describes a request that failed after its attempt budget.
type Error struct {
	Method     string
	URL        string
	Attempts   int
	StatusCode int // last HTTP status, 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s %s after %d attempts: status %d", e.Method, e.URL, e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s %s after %d attempts: %v", e.Method, e.URL, e.Attempts, e.Err)
}

// Unwrap exposes ErrExhausted and the last underlying error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExhausted}
	}
	return []error{ErrExhausted, e.Err}
}

// StatusCode returns the last HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
