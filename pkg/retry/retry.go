// Package retry runs an operation under a bounded exponential backoff
// policy, retrying only failures whose code the policy marks retryable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"ajala-hq/ajala/pkg/codes"
)

// State is a phase of the retry state machine.
type State string

const (
	Attempting State = "attempting"
	RetryWait  State = "retry_wait"
	Succeeded  State = "succeeded"
	Exhausted  State = "exhausted"
	Failed     State = "failed"
)

// Error is returned when Do gives up. Exhausted means every attempt failed
// with a retryable error; Failed means a non-retryable error or
// cancellation stopped the loop.
type Error struct {
	State    State
	Attempts int
	Cause    error

	// Interrupted holds the context error when cancellation ended the loop.
	Interrupted error
}

func (e *Error) Error() string {
	verb := "gave up"
	if e.State == Exhausted {
		verb = "exhausted"
	}
	noun := "attempts"
	if e.Attempts == 1 {
		noun = "attempt"
	}
	switch {
	case e.Interrupted != nil && e.Cause != nil:
		return fmt.Sprintf("retry %s after %d %s: %v (last error: %v)", verb, e.Attempts, noun, e.Interrupted, e.Cause)
	case e.Interrupted != nil:
		return fmt.Sprintf("retry %s after %d %s: %v", verb, e.Attempts, noun, e.Interrupted)
	default:
		return fmt.Sprintf("retry %s after %d %s: %v", verb, e.Attempts, noun, e.Cause)
	}
}

// Code implements codes.Coder. Cancellation maps to TimeoutError; otherwise
// the cause's code is reported.
func (e *Error) Code() codes.Code {
	if e.Interrupted != nil {
		return codes.TimeoutError
	}
	return codes.Of(e.Cause)
}

// Unwrap exposes both the last operation error and the context error.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Interrupted != nil {
		errs = append(errs, e.Interrupted)
	}
	return errs
}

// Event describes a failed attempt that is about to be retried.
type Event struct {
	Attempt int
	Delay   time.Duration
	Code    codes.Code
	Err     error
}

// Observer is notified before every backoff wait.
type Observer func(Event)

// Classifier maps an error to its code.
type Classifier func(error) codes.Code

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Hinter is implemented by errors that carry a server-supplied retry delay
// (e.g. an HTTP Retry-After header).
type Hinter interface {
	RetryHint() time.Duration
}

type options struct {
	classify  Classifier
	observers []Observer
	sleep     SleepFunc
	rand      func() float64
}

// Option configures Do.
type Option func(*options)

// WithClassifier replaces codes.Of as the error classifier.
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classify = c
		}
	}
}

// WithObserver registers an observer for retry events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithSleep replaces the context-aware timer wait.
func WithSleep(s SleepFunc) Option {
	return func(o *options) {
		if s != nil {
			o.sleep = s
		}
	}
}

// Do calls op until it succeeds, fails with a non-retryable error, the
// policy's attempts run out, or ctx is done. op receives the 1-based attempt
// number.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) (T, error), opts ...Option) (T, error) {
	var zero T
	if err := policy.Validate(); err != nil {
		return zero, err
	}

	o := options{
		classify: codes.Of,
		sleep:    Sleep,
		rand:     rand.Float64,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &Error{State: Failed, Attempts: attempt - 1, Cause: lastErr, Interrupted: err}
		}

		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, &Error{State: Failed, Attempts: attempt, Cause: err, Interrupted: ctxErr}
		}

		code := o.classify(err)
		if !policy.IsRetryable(code) {
			return zero, &Error{State: Failed, Attempts: attempt, Cause: err}
		}
		if attempt >= policy.MaxAttempts {
			return zero, &Error{State: Exhausted, Attempts: attempt, Cause: err}
		}

		delay := o.wait(policy, attempt, err)
		for _, obs := range o.observers {
			obs(Event{Attempt: attempt, Delay: delay, Code: code, Err: err})
		}

		if err := o.sleep(ctx, delay); err != nil {
			return zero, &Error{State: Failed, Attempts: attempt, Cause: lastErr, Interrupted: err}
		}
	}
}

// wait computes the backoff after attempt, applying jitter and any
// retry-after hint, always capped by MaxDelay.
func (o *options) wait(policy Policy, attempt int, err error) time.Duration {
	d := policy.Delay(attempt)
	if policy.Jitter > 0 && d > 0 {
		d -= time.Duration(o.rand() * policy.Jitter * float64(d))
	}

	var hinted Hinter
	if errors.As(err, &hinted) {
		if ra := hinted.RetryHint(); ra > d {
			d = ra
		}
	}
	if d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	return d
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
