package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zkclaim/internal/testutil"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeRelay) {
	t.Helper()
	fake := testutil.NewFakeRelay(t, "test-key")
	return New(fake.URL(), "test-key", 5*time.Second), fake
}

func TestRegisterVK_TopLevelHash(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpRegisterVK, testutil.OK(map[string]any{"vkHash": "0xabc"}))

	resp, err := c.RegisterVK(context.Background(), RegisterVKRequest{
		ProofOptions: ProofOptions{Library: "snarkjs", Curve: "bn128"},
		VK:           json.RawMessage(`{"protocol":"groth16"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", resp.VKHash)

	calls := fake.Calls(testutil.OpRegisterVK)
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/register-vk/test-key", calls[0].Path)

	var body map[string]any
	calls[0].Decode(t, &body)
	assert.Equal(t, "groth16", body["proofType"])
	assert.Equal(t, map[string]any{"library": "snarkjs", "curve": "bn128"}, body["proofOptions"])
	assert.Equal(t, map[string]any{"protocol": "groth16"}, body["vk"])
}

func TestRegisterVK_NestedMetaHash(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpRegisterVK, testutil.OK(map[string]any{
		"meta": map[string]any{"vkHash": "0xdef"},
	}))

	resp, err := c.RegisterVK(context.Background(), RegisterVKRequest{VK: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "0xdef", resp.VKHash)
}

func TestRegisterVK_UnknownShape(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpRegisterVK, testutil.OK(map[string]any{"hash": "0x1"}))

	_, err := c.RegisterVK(context.Background(), RegisterVKRequest{VK: json.RawMessage(`{}`)})
	require.Error(t, err)

	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, opRegisterVK, se.Op)
	assert.Contains(t, se.Body, `"hash"`)
}

func TestSubmitProof_Payload(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpSubmitProof, testutil.OK(map[string]any{
		"optimisticVerify": "success",
		"jobId":            "job-1",
	}))

	resp, err := c.SubmitProof(context.Background(), SubmitRequest{
		ProofOptions: ProofOptions{Library: "snarkjs", Curve: "bn128"},
		ProofData: ProofData{
			Proof:         json.RawMessage(`{"pi_a":["1","2"]}`),
			PublicSignals: []string{"H1", "7"},
			VK:            "0xabc",
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, "job-1", resp.JobID)

	var body map[string]any
	fake.Calls(testutil.OpSubmitProof)[0].Decode(t, &body)
	assert.Equal(t, "groth16", body["proofType"])
	assert.Equal(t, true, body["vkRegistered"])
	assert.NotContains(t, body, "chainId", "chainId must be omitted when aggregation is off")

	proofData := body["proofData"].(map[string]any)
	assert.Equal(t, "0xabc", proofData["vk"])
	assert.Equal(t, []any{"H1", "7"}, proofData["publicSignals"])
}

func TestSubmitProof_ChainID(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpSubmitProof, testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-2"}))

	_, err := c.SubmitProof(context.Background(), SubmitRequest{ChainID: 11155111})
	require.NoError(t, err)

	var body map[string]any
	fake.Calls(testutil.OpSubmitProof)[0].Decode(t, &body)
	assert.Equal(t, float64(11155111), body["chainId"])
}

func TestSubmitProof_NotAccepted(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpSubmitProof, testutil.OK(map[string]any{"optimisticVerify": "failed", "jobId": "job-3"}))

	resp, err := c.SubmitProof(context.Background(), SubmitRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Accepted())
	assert.Contains(t, string(resp.Raw), "failed")
}

func TestJobStatus_TopLevelFields(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpJobStatus, testutil.OK(map[string]any{
		"jobId":         "job-1",
		"status":        "Aggregated",
		"txHash":        "0xtx",
		"blockHash":     "0xblock",
		"aggregationId": 42,
		"merkleRoot":    "0xroot",
		"merklePath":    []string{"0xa", "0xb"},
		"leafIndex":     3,
		"leafDigest":    "0xleaf",
	}))

	st, err := c.JobStatus(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, StateAggregated, st.Status)
	assert.Equal(t, "0xtx", st.TxHash)
	assert.Equal(t, "0xblock", st.BlockHash)
	assert.Equal(t, "42", st.AggregationID)
	assert.Equal(t, "0xroot", st.MerkleRoot)
	assert.Equal(t, []string{"0xa", "0xb"}, st.MerklePath)
	assert.Equal(t, int64(3), st.LeafIndex)
	assert.Equal(t, "0xleaf", st.LeafDigest)
	assert.True(t, st.HasAggregation())
	assert.NotEmpty(t, st.Raw)

	call := fake.Calls(testutil.OpJobStatus)[0]
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "job-1", call.JobID)
}

func TestJobStatus_NestedAggregationDetails(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpJobStatus, testutil.OK(map[string]any{
		"status":        "Aggregated",
		"aggregationId": "7",
		"aggregationDetails": map[string]any{
			"root":        "0xroot",
			"leaf":        "0xleaf",
			"leafIndex":   "5",
			"merkleProof": []string{"0x1"},
		},
	}))

	st, err := c.JobStatus(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, "job-9", st.JobID, "job id falls back to the requested id")
	assert.Equal(t, "0xroot", st.MerkleRoot)
	assert.Equal(t, "0xleaf", st.LeafDigest)
	assert.Equal(t, int64(5), st.LeafIndex)
	assert.Equal(t, []string{"0x1"}, st.MerklePath)
}

func TestJobStatus_MissingStatus(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpJobStatus, testutil.OK(map[string]any{"jobId": "job-1"}))

	_, err := c.JobStatus(context.Background(), "job-1")
	var se *ShapeError
	require.ErrorAs(t, err, &se)
}

func TestJobStatus_EmptyJobID(t *testing.T) {
	c, fake := newTestClient(t)
	_, err := c.JobStatus(context.Background(), "")
	require.Error(t, err)
	assert.Zero(t, fake.Count(""))
}

func TestHTTPError_PreservesStatusAndBody(t *testing.T) {
	tests := []struct {
		name      string
		reply     testutil.Reply
		retryable bool
	}{
		{"service unavailable", testutil.Unavailable(), true},
		{"bad request", testutil.Reply{Status: http.StatusBadRequest, Body: `{"error":"bad proof"}`}, false},
		{"internal error", testutil.Reply{Status: http.StatusInternalServerError, Body: "boom"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestClient(t)
			fake.Script(testutil.OpJobStatus, tt.reply)

			_, err := c.JobStatus(context.Background(), "job-1")
			require.Error(t, err)

			var he *HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tt.reply.Status, he.StatusCode)
			assert.Equal(t, tt.reply.Body, he.Body)
			assert.Equal(t, opJobStatus, he.Op)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.reply.Status, StatusCode(err))
		})
	}
}

func TestClient_WrongAPIKey(t *testing.T) {
	fake := testutil.NewFakeRelay(t, "right-key")
	c := New(fake.URL(), "wrong-key", time.Second)

	_, err := c.JobStatus(context.Background(), "job-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.False(t, IsRetryable(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Script(testutil.OpJobStatus, testutil.OK(map[string]any{"status": "Pending"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.JobStatus(ctx, "job-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_RedactsAPIKey(t *testing.T) {
	c := New("https://relay.example.com/api/v1/", "s3cr3t", 0)
	u := c.endpoint(opJobStatus, "job-1")
	assert.Equal(t, "https://relay.example.com/api/v1/job-status/s3cr3t/job-1", u)
	assert.Equal(t, "https://relay.example.com/api/v1/job-status/***/job-1", c.redact(u))
}

func TestJobState_Terminal(t *testing.T) {
	for _, s := range []JobState{StateFinalized, StateAggregated, StateFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []JobState{StatePending, StateQueued, StateSubmitted, StateIncludedInBlock, StateAggregating, StateAggregationPending, "Verified"} {
		assert.False(t, s.Terminal(), s)
	}
}
