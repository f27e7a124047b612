package codes

import "fmt"

// Error is the generic coded error used by packages that have no richer
// error type of their own.
type Error struct {
	// Kind is the stable error token returned by Code()
	Kind Code

	// Op names the operation that failed (e.g. "pipeline.parse")
	Op string

	// Message describes the failure; defaults to the code's message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// New creates a coded error.
func New(code Code, op, message string) *Error {
	return &Error{Kind: code, Op: op, Message: message}
}

// Wrap creates a coded error around cause.
func Wrap(code Code, op string, cause error) *Error {
	return &Error{Kind: code, Op: op, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Message()
	}
	prefix := e.Kind.Name()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Code implements Coder.
func (e *Error) Code() Code {
	return e.Kind
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}
