package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTrace = []TraceEvent{
	{Seq: 1, Op: "register-vk"},
	{Seq: 2, Op: "submit-proof"},
	{Seq: 3, Op: "job-status", JobID: "job-1"},
	{Seq: 4, Op: "job-status", JobID: "job-1"},
}

func TestAssertCallCount(t *testing.T) {
	assert.NoError(t, assertCallCount(sampleTrace, Assertion{Op: "job-status", Count: 2}))
	assert.NoError(t, assertCallCount(sampleTrace, Assertion{Count: 4}))

	err := assertCallCount(sampleTrace, Assertion{Op: "register-vk", Count: 2})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertCallCount, ae.Type)
	assert.Equal(t, "1", ae.Actual)
}

func TestAssertCallOrder(t *testing.T) {
	assert.NoError(t, assertCallOrder(sampleTrace, Assertion{Ops: []string{"register-vk", "job-status"}}))
	assert.NoError(t, assertCallOrder(sampleTrace, Assertion{Ops: []string{"submit-proof", "job-status", "job-status"}}))

	err := assertCallOrder(sampleTrace, Assertion{Ops: []string{"job-status", "submit-proof"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched up to job-status")
}

func TestAssertSleeps(t *testing.T) {
	got := []time.Duration{5 * time.Second, 20 * time.Second}
	assert.NoError(t, assertSleeps(got, Assertion{Sleeps: []string{"5s", "20s"}}))
	assert.Error(t, assertSleeps(got, Assertion{Sleeps: []string{"5s"}}))
	assert.NoError(t, assertSleeps(nil, Assertion{}))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCallCount,
		Expected: "1 requests to submit-proof",
		Actual:   "2",
		Trace:    sampleTrace[2:],
	}

	msg := err.Error()
	assert.Contains(t, msg, "call_count failed")
	assert.Contains(t, msg, "Expected: 1 requests to submit-proof")
	assert.Contains(t, msg, "Actual: 2")
	assert.Contains(t, msg, "[3] job-status job-1")
}

func TestClassify_Success(t *testing.T) {
	outcome, role := classify(nil)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Empty(t, role)
}
