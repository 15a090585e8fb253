// Package retry runs fallible operations under a bounded attempt policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts bounds network-sensitive operations such as clone and push.
	DefaultMaxAttempts = 3
	// DefaultDelay is the pause between consecutive attempts.
	DefaultDelay = 5 * time.Second

	invalidAttemptsMessageConstant  = "retry policy requires at least one attempt"
	operationMissingMessageConstant = "retry operation not provided"
	exhaustedErrorTemplateConstant  = "operation failed after %d attempt(s): %v"
)

// ErrInvalidAttempts indicates a policy configured with fewer than one attempt.
var ErrInvalidAttempts = errors.New(invalidAttemptsMessageConstant)

// ErrOperationMissing indicates Execute received a nil operation.
var ErrOperationMissing = errors.New(operationMissingMessageConstant)

// Operation is a single attempt of work. The attempt number starts at 1.
type Operation func(executionContext context.Context, attempt int) error

// Sleeper pauses between attempts.
type Sleeper interface {
	Sleep(executionContext context.Context, duration time.Duration) error
}

// RetryObserver is notified after each failed attempt that will be retried.
type RetryObserver func(attempt int, maxAttempts int, failure error)

// ExhaustedError reports that every attempt of an operation failed.
type ExhaustedError struct {
	Attempts  int
	LastError error
}

// Error describes the exhausted operation.
func (exhausted ExhaustedError) Error() string {
	return fmt.Sprintf(exhaustedErrorTemplateConstant, exhausted.Attempts, exhausted.LastError)
}

// Unwrap exposes the failure of the final attempt.
func (exhausted ExhaustedError) Unwrap() error {
	return exhausted.LastError
}

// Policy describes how many times an operation runs and how long to wait in between.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleeper     Sleeper
	Observer    RetryObserver
}

// DefaultPolicy returns the policy used for clone and push.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Validate ensures the policy can run at least once.
func (policy Policy) Validate() error {
	if policy.MaxAttempts < 1 {
		return ErrInvalidAttempts
	}
	return nil
}

// Execute invokes the operation until it succeeds or the attempts are exhausted.
func (policy Policy) Execute(executionContext context.Context, operation Operation) error {
	if operation == nil {
		return ErrOperationMissing
	}
	if validationError := policy.Validate(); validationError != nil {
		return validationError
	}

	sleeper := policy.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}

	var lastError error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastError = operation(executionContext, attempt)
		if lastError == nil {
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if policy.Observer != nil {
			policy.Observer(attempt, policy.MaxAttempts, lastError)
		}
		if sleepError := sleeper.Sleep(executionContext, policy.Delay); sleepError != nil {
			return ExhaustedError{Attempts: attempt, LastError: lastError}
		}
	}

	return ExhaustedError{Attempts: policy.MaxAttempts, LastError: lastError}
}

// TimerSleeper waits on the wall clock and stops early when the context is cancelled.
type TimerSleeper struct{}

// Sleep blocks for the duration or until the context ends.
func (TimerSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	if duration <= 0 {
		return executionContext.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}
