package pipeline

import (
	"errors"
	"fmt"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/retry"
)

// Error is returned by Execute for every failure. Attempts is the number
// of provider calls made, zero when the request failed before dispatch.
// Code equals codes.Of(Cause), so codes.Of reports the same code for the
// *Error itself.
type Error struct {
	Code      codes.Code
	RequestID string
	Attempts  int
	Cause     error
}

func (e *Error) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s: request %s failed after %d attempt(s): %v", e.Code.Name(), e.RequestID, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s: request %s failed: %v", e.Code.Name(), e.RequestID, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(requestID string, attempts int, cause error) *Error {
	var rerr *retry.Error
	if errors.As(cause, &rerr) {
		attempts = rerr.Attempts
	}
	return &Error{
		Code:      codes.Of(cause),
		RequestID: requestID,
		Attempts:  attempts,
		Cause:     cause,
	}
}
