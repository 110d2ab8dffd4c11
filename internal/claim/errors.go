package claim

import (
	"errors"
	"fmt"
)

// Stages of a claim phase, used in PhaseError.
const (
	StageValidate = "validate"
	StageProve    = "prove"
	StageRegister = "register"
	StageSubmit   = "submit"
	StagePoll     = "poll"
)

// PhaseError records which phase and stage failed. errors.As still reaches
// the typed cause (RegistrationError, SubmissionError, poller errors).
type PhaseError struct {
	ClaimID string
	Role    string
	Stage   string
	Err     error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %s: %v", e.Role, e.Stage, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// SubmissionError reports that the relay refused a proof at submission,
// either with a non-2xx response or an optimistic verification other than
// "success".
type SubmissionError struct {
	Role             string
	JobID            string
	OptimisticVerify string
	Body             string
	Cause            error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("submit %s proof: %v", e.Role, e.Cause)
	}
	return fmt.Sprintf("submit %s proof: optimistic verification %q: %s", e.Role, e.OptimisticVerify, e.Body)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// LinkageError reports a patient phase started without a doctor proof hash.
type LinkageError struct {
	Message string
}

func (e *LinkageError) Error() string {
	return "claim linkage: " + e.Message
}

// ValidationError reports unusable claim inputs.
type ValidationError struct {
	Role    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s inputs: %s", e.Role, e.Message)
	}
	return fmt.Sprintf("invalid %s input %s: %s", e.Role, e.Field, e.Message)
}

// IsSubmissionError returns true if err is or wraps a SubmissionError.
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

// IsLinkageError returns true if err is or wraps a LinkageError.
func IsLinkageError(err error) bool {
	var le *LinkageError
	return errors.As(err, &le)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FailedRole returns the role of the phase that produced err, or "" if err
// did not come from a phase.
func FailedRole(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Role
	}
	return ""
}
