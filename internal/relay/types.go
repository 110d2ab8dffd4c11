package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ProofTypeGroth16 is the only proof system this client submits.
const ProofTypeGroth16 = "groth16"

// OptimisticVerifySuccess is the submit-proof acknowledgement that admits a
// job into polling.
const OptimisticVerifySuccess = "success"

// JobState is the relay's job status vocabulary.
type JobState string

const (
	StatePending            JobState = "Pending"
	StateQueued             JobState = "Queued"
	StateSubmitted          JobState = "Submitted"
	StateIncludedInBlock    JobState = "IncludedInBlock"
	StateFinalized          JobState = "Finalized"
	StateAggregationPending JobState = "AggregationPending"
	StateAggregating        JobState = "Aggregating"
	StateAggregated         JobState = "Aggregated"
	StateFailed             JobState = "Failed"
)

// Terminal reports whether the relay will not move the job out of s.
func (s JobState) Terminal() bool {
	switch s {
	case StateFinalized, StateAggregated, StateFailed:
		return true
	}
	return false
}

// ProofOptions selects the proving library and curve.
type ProofOptions struct {
	Library string `json:"library"`
	Curve   string `json:"curve"`
}

// RegisterVKRequest is the register-vk payload.
type RegisterVKRequest struct {
	ProofType    string          `json:"proofType"`
	ProofOptions ProofOptions    `json:"proofOptions"`
	VK           json.RawMessage `json:"vk"`
}

// RegisterVKResponse carries the identifier the relay assigned to a key.
type RegisterVKResponse struct {
	VKHash string
	Raw    json.RawMessage
}

// ProofData is the proof portion of a submit-proof payload.
type ProofData struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
	VK            string          `json:"vk"`
}

// SubmitRequest is the submit-proof payload. ChainID is omitted when zero,
// which keeps the proof out of cross-chain aggregation.
type SubmitRequest struct {
	ProofType    string       `json:"proofType"`
	VKRegistered bool         `json:"vkRegistered"`
	ProofOptions ProofOptions `json:"proofOptions"`
	ProofData    ProofData    `json:"proofData"`
	ChainID      uint64       `json:"chainId,omitempty"`
}

// SubmitResponse is the relay's acknowledgement of a submitted proof.
type SubmitResponse struct {
	OptimisticVerify string          `json:"optimisticVerify"`
	JobID            string          `json:"jobId"`
	Raw              json.RawMessage `json:"-"`
}

// Accepted reports whether the relay optimistically verified the proof.
func (r *SubmitResponse) Accepted() bool {
	return r.OptimisticVerify == OptimisticVerifySuccess && r.JobID != ""
}

// JobStatus is one job-status observation.
type JobStatus struct {
	JobID         string
	Status        JobState
	TxHash        string
	BlockHash     string
	AggregationID string
	MerkleRoot    string
	MerklePath    []string
	LeafIndex     int64
	LeafDigest    string

	// Raw is the undecoded response body, kept for diagnostics.
	Raw json.RawMessage
}

// HasAggregation reports whether the relay attached aggregation metadata.
func (s *JobStatus) HasAggregation() bool {
	return s.AggregationID != "" && s.MerkleRoot != ""
}

// flexString accepts a JSON string or number; aggregation ids have been
// sent as both.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a decimal string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}
