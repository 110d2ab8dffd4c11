package claim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/relay"
	"github.com/roach88/zkclaim/internal/testutil"
)

func TestVerifyFiles_BothRoles(t *testing.T) {
	env := newTestEnv(t)
	env.relay.Script(testutil.OpRegisterVK, testutil.OK(map[string]any{"vkHash": "0xvk"}))
	env.relay.Script(testutil.OpSubmitProof, testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-f"}))
	env.relay.Script(testutil.OpJobStatus, jobStatus("job-f", relay.StateFinalized))

	dir := t.TempDir()
	require.NoError(t, prover.Save(dir, RoleDoctor, &prover.ProofArtifact{Proof: []byte(`{}`), PublicSignals: []string{"H1"}}))
	require.NoError(t, prover.Save(dir, RolePatient, &prover.ProofArtifact{Proof: []byte(`{}`), PublicSignals: []string{"P1"}}))

	results := env.orch.VerifyFiles(context.Background(), "files-1", dir)
	require.Len(t, results, 2)

	assert.Equal(t, RoleDoctor, results[0].Role)
	assert.Equal(t, "H1", results[0].ProofHash)
	assert.True(t, results[0].Verified)
	assert.Equal(t, RolePatient, results[1].Role)
	assert.Equal(t, "P1", results[1].ProofHash)
	assert.True(t, results[1].Verified)
	assert.True(t, AllVerified(results))
	assert.Empty(t, env.prover.Calls())
}

func TestVerifyFiles_MissingProofDoesNotStopOtherRole(t *testing.T) {
	env := newTestEnv(t)
	env.relay.Script(testutil.OpRegisterVK, testutil.OK(map[string]any{"vkHash": "0xvk"}))
	env.relay.Script(testutil.OpSubmitProof, testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-f"}))
	env.relay.Script(testutil.OpJobStatus, jobStatus("job-f", relay.StateFinalized))

	dir := t.TempDir()
	require.NoError(t, prover.Save(dir, RolePatient, &prover.ProofArtifact{Proof: []byte(`{}`), PublicSignals: []string{"P1"}}))

	results := env.orch.VerifyFiles(context.Background(), "", dir)
	require.Len(t, results, 2)

	assert.False(t, results[0].Verified)
	assert.Contains(t, results[0].Error, "read proof")
	assert.True(t, results[1].Verified)
	assert.False(t, AllVerified(results))
}
