package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "file name and scenario name differ")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_SuccessCarriesClaimResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/aggregated_with_transient.yaml")
	require.NoError(t, err)

	result, err := Run(t, scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.NotNil(t, result.Claim)

	assert.Equal(t, ClaimID, result.Claim.ClaimID)
	assert.Equal(t, "0xdoctor", result.Claim.Doctor.ProofHash)
	require.NotNil(t, result.Claim.Patient.Receipt)
	assert.Equal(t, "0xpatient", result.Claim.Patient.Receipt.ProofHash)
	assert.Nil(t, result.Claim.Doctor.Receipt)
}

func TestRun_ReportsOutcomeMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectation
description: "Doctor fails but the scenario expects success"
relay:
  register_vk:
    - body: { vkHash: "0xvk" }
  submit_proof:
    - body: { optimisticVerify: success, jobId: job-doctor }
  job_status:
    - body: { status: Failed }
expect:
  outcome: success
assertions:
  - type: call_count
    op: submit-proof
    count: 2
`))
	require.NoError(t, err)

	result, err := Run(t, scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "doctor", result.FailedRole)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "outcome: expected success, got failed")
	assert.Contains(t, result.Errors[1], "2 requests to submit-proof")
}

func TestRun_ReportsReceiptMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: no_receipt_in_direct_mode
description: "Direct mode never stores a receipt"
relay:
  register_vk:
    - body: { vkHash: "0xvk" }
  submit_proof:
    - body: { optimisticVerify: success, jobId: job-1 }
  job_status:
    - body: { status: Finalized }
expect:
  outcome: success
assertions:
  - type: receipt
    role: patient
    expect: { proofHash: "0xpatient" }
`))
	require.NoError(t, err)

	result, err := Run(t, scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "none stored")
}
