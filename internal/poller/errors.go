package poller

import (
	"errors"
	"fmt"
	"time"
)

// FailureError reports that the relay marked a job Failed.
type FailureError struct {
	JobID  string
	Detail string
}

func (e *FailureError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Detail)
}

// TimeoutError reports that a job did not reach its target status within
// the attempt budget or the wall-clock bound.
type TimeoutError struct {
	JobID        string
	AttemptsMade int
	Elapsed      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s not final after %d attempts (%s)", e.JobID, e.AttemptsMade, e.Elapsed)
}

// CancelledError reports that the caller's context ended while polling.
type CancelledError struct {
	JobID string
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("polling job %s cancelled: %v", e.JobID, e.Cause)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// IsFailure returns true if err is or wraps a FailureError.
func IsFailure(err error) bool {
	var fe *FailureError
	return errors.As(err, &fe)
}

// IsTimeout returns true if err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCancelled returns true if err is or wraps a CancelledError.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
