package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/patient_timeout.yaml")
	require.NoError(t, err)

	assert.Equal(t, "patient_timeout", s.Name)
	assert.Equal(t, 3, s.MaxAttempts)
	assert.Equal(t, OutcomeTimeout, s.Expect.Outcome)
	assert.Equal(t, "patient", s.Expect.Role)
	require.Len(t, s.Relay.JobStatus, 2)
	assert.Equal(t, "IncludedInBlock", s.Relay.JobStatus[1].Body["status"])

	pc := s.pollerConfig()
	assert.Equal(t, 3, pc.MaxAttempts)
	assert.False(t, pc.Aggregate)
	assert.Zero(t, pc.MaxWait)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: typo
description: "misspelled key"
expect: { outcome: success }
assertion: []
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    `{description: d, expect: {outcome: success}}`,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    `{name: n, expect: {outcome: success}}`,
			wantErr: "description is required",
		},
		{
			name:    "unknown outcome",
			yaml:    `{name: n, description: d, expect: {outcome: maybe}}`,
			wantErr: `unknown outcome "maybe"`,
		},
		{
			name:    "failure without role",
			yaml:    `{name: n, description: d, expect: {outcome: failed}}`,
			wantErr: "expect.role is required",
		},
		{
			name:    "unknown proof role",
			yaml:    `{name: n, description: d, proofs: {nurse: ["1"]}, expect: {outcome: success}}`,
			wantErr: `proofs: unknown role "nurse"`,
		},
		{
			name:    "unknown assertion",
			yaml:    `{name: n, description: d, expect: {outcome: success}, assertions: [{type: final_state}]}`,
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "call_order without ops",
			yaml:    `{name: n, description: d, expect: {outcome: success}, assertions: [{type: call_order}]}`,
			wantErr: "ops list is required",
		},
		{
			name:    "bad sleep",
			yaml:    `{name: n, description: d, expect: {outcome: success}, assertions: [{type: sleeps, sleeps: [soon]}]}`,
			wantErr: `invalid sleep "soon"`,
		},
		{
			name:    "receipt without expectation",
			yaml:    `{name: n, description: d, expect: {outcome: success}, assertions: [{type: receipt, role: patient}]}`,
			wantErr: "expect or absent is required",
		},
		{
			name:    "prove_input without field",
			yaml:    `{name: n, description: d, expect: {outcome: success}, assertions: [{type: prove_input, role: patient}]}`,
			wantErr: "role and field are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
