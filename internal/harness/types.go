package harness

import (
	"time"

	"github.com/roach88/zkclaim/internal/claim"
)

// TraceEvent is one request the relay received.
type TraceEvent struct {
	Seq   int    `json:"seq"`
	Op    string `json:"op"`
	JobID string `json:"job_id,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the outcome matched and every assertion held.
	Pass bool `json:"pass"`

	Outcome    string `json:"outcome"`
	FailedRole string `json:"failed_role,omitempty"`

	// Trace contains every relay request in arrival order.
	Trace []TraceEvent `json:"trace"`

	// Sleeps are the poller's sleeps in order.
	Sleeps []time.Duration `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Claim is the orchestrator result on success.
	Claim *claim.Result `json:"-"`

	// Err is the orchestrator error on failure.
	Err error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Ops returns the relay endpoint of every trace event.
func (r *Result) Ops() []string {
	ops := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		ops[i] = e.Op
	}
	return ops
}
