package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/roach88/zkclaim/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the relay trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s failed\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nRelay trace:\n")
		for _, event := range e.Trace {
			if event.JobID != "" {
				fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Op, event.JobID)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Op)
			}
		}
	}
	return buf.String()
}

func (h *Harness) evaluate(ctx context.Context, r *Result, a Assertion) error {
	switch a.Type {
	case AssertCallCount:
		return assertCallCount(r.Trace, a)
	case AssertCallOrder:
		return assertCallOrder(r.Trace, a)
	case AssertSleeps:
		return assertSleeps(r.Sleeps, a)
	case AssertReceipt:
		return h.assertReceipt(ctx, a)
	case AssertRuns:
		return h.assertRuns(ctx, a)
	case AssertProveInput:
		return h.assertProveInput(a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertCallCount checks how many requests reached op.
func assertCallCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, e := range trace {
		if a.Op == "" || e.Op == a.Op {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	op := a.Op
	if op == "" {
		op = "any endpoint"
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%d requests to %s", a.Count, op),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

// assertCallOrder checks that a.Ops occur in order. Other requests may
// appear in between.
func assertCallOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, e := range trace {
		if next < len(a.Ops) && e.Op == a.Ops[next] {
			next++
		}
	}
	if next == len(a.Ops) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: strings.Join(a.Ops, " → "),
		Actual:   fmt.Sprintf("matched up to %s", strings.Join(a.Ops[:next], " → ")),
		Trace:    trace,
	}
}

func assertSleeps(got []time.Duration, a Assertion) error {
	want := make([]time.Duration, len(a.Sleeps))
	for i, s := range a.Sleeps {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		want[i] = d
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSleeps,
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(got),
	}
}

// assertReceipt compares the stored receipt's JSON fields with a.Expect
// (subset match).
func (h *Harness) assertReceipt(ctx context.Context, a Assertion) error {
	rc, err := h.store.ReadReceipt(ctx, ClaimID, a.Role)
	if a.Absent {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return &AssertionError{
			Type:     AssertReceipt,
			Expected: "no receipt for " + a.Role,
			Actual:   fmt.Sprintf("receipt with proof hash %s", rc.ProofHash),
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{Type: AssertReceipt, Expected: "receipt for " + a.Role, Actual: "none stored"}
	}
	if err != nil {
		return err
	}

	actual, err := asJSONMap(rc)
	if err != nil {
		return err
	}
	expected, err := asJSONMap(a.Expect)
	if err != nil {
		return err
	}
	for k, want := range expected {
		if got, ok := actual[k]; !ok || !reflect.DeepEqual(got, want) {
			return &AssertionError{
				Type:     AssertReceipt,
				Expected: fmt.Sprintf("%s = %v", k, want),
				Actual:   fmt.Sprintf("%s = %v", k, got),
			}
		}
	}
	return nil
}

// assertRuns compares the recorded phase outcomes in order.
func (h *Harness) assertRuns(ctx context.Context, a Assertion) error {
	runs, err := h.store.RunsByClaim(ctx, ClaimID)
	if err != nil {
		return err
	}
	got := make([]string, len(runs))
	for i, run := range runs {
		got[i] = run.Role + ":" + run.Outcome
	}
	if slices.Equal(got, a.Outcomes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRuns,
		Expected: strings.Join(a.Outcomes, ", "),
		Actual:   strings.Join(got, ", "),
	}
}

func (h *Harness) assertProveInput(a Assertion) error {
	in, ok := h.prover.input(a.Role)
	if !ok {
		return &AssertionError{Type: AssertProveInput, Expected: a.Role + " proof generated", Actual: "prover not called"}
	}
	if got, ok := in[a.Field]; !ok || got != a.Value {
		return &AssertionError{
			Type:     AssertProveInput,
			Expected: fmt.Sprintf("%s = %q", a.Field, a.Value),
			Actual:   fmt.Sprintf("%s = %q", a.Field, got),
		}
	}
	return nil
}

// asJSONMap normalizes v through JSON so YAML and Go values compare
// equal (numbers become float64).
func asJSONMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
