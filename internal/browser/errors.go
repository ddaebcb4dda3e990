// File: internal/browser/errors.go
package browser

import (
	"fmt"
	"time"
)

// AuthenticationError means the session could not reach an authenticated
// state. The session must be reset before it can be used again.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ElementNotFoundError means a selector did not match any node before
// the operation deadline. Usually selector drift on the target site.
type ElementNotFoundError struct {
	Selector string
	Err      error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %q", e.Selector)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Err }

// TimeoutError means a page operation exceeded its deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
