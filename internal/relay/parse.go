package relay

import (
	"encoding/json"
)

// vkHashShape extracts a vk hash from one known register-vk response
// layout. ok is false when the layout does not match.
type vkHashShape func(body []byte) (hash string, ok bool)

// vkHashShapes lists the register-vk layouts the relay has used, in the
// order they are tried.
var vkHashShapes = []vkHashShape{
	// {"vkHash": "0x..."}
	func(body []byte) (string, bool) {
		var r struct {
			VKHash string `json:"vkHash"`
		}
		if json.Unmarshal(body, &r) != nil || r.VKHash == "" {
			return "", false
		}
		return r.VKHash, true
	},
	// {"meta": {"vkHash": "0x..."}}
	func(body []byte) (string, bool) {
		var r struct {
			Meta struct {
				VKHash string `json:"vkHash"`
			} `json:"meta"`
		}
		if json.Unmarshal(body, &r) != nil || r.Meta.VKHash == "" {
			return "", false
		}
		return r.Meta.VKHash, true
	},
}

// parseVKHash returns the vk hash from a register-vk body or a ShapeError
// if no known layout matches.
func parseVKHash(body []byte) (string, error) {
	for _, shape := range vkHashShapes {
		if hash, ok := shape(body); ok {
			return hash, nil
		}
	}
	return "", &ShapeError{Op: opRegisterVK, Body: string(body)}
}

type jobStatusWire struct {
	JobID         string     `json:"jobId"`
	Status        JobState   `json:"status"`
	TxHash        string     `json:"txHash"`
	BlockHash     string     `json:"blockHash"`
	AggregationID flexString `json:"aggregationId"`
	MerkleRoot    string     `json:"merkleRoot"`
	MerklePath    []string   `json:"merklePath"`
	LeafIndex     *flexInt   `json:"leafIndex"`
	LeafDigest    string     `json:"leafDigest"`

	// Newer relays nest the aggregation receipt.
	AggregationDetails *struct {
		Root        string   `json:"root"`
		Leaf        string   `json:"leaf"`
		LeafIndex   *flexInt `json:"leafIndex"`
		MerkleProof []string `json:"merkleProof"`
	} `json:"aggregationDetails"`
}

// parseJobStatus decodes a job-status body. Top-level merkle fields win;
// the nested aggregationDetails layout fills whatever is still empty.
func parseJobStatus(body []byte) (*JobStatus, error) {
	var w jobStatusWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &ShapeError{Op: opJobStatus, Body: string(body)}
	}
	if w.Status == "" {
		return nil, &ShapeError{Op: opJobStatus, Body: string(body)}
	}

	st := &JobStatus{
		JobID:         w.JobID,
		Status:        w.Status,
		TxHash:        w.TxHash,
		BlockHash:     w.BlockHash,
		AggregationID: string(w.AggregationID),
		MerkleRoot:    w.MerkleRoot,
		MerklePath:    w.MerklePath,
		LeafDigest:    w.LeafDigest,
		Raw:           json.RawMessage(body),
	}
	if w.LeafIndex != nil {
		st.LeafIndex = int64(*w.LeafIndex)
	}

	if d := w.AggregationDetails; d != nil {
		if st.MerkleRoot == "" {
			st.MerkleRoot = d.Root
		}
		if st.LeafDigest == "" {
			st.LeafDigest = d.Leaf
		}
		if len(st.MerklePath) == 0 {
			st.MerklePath = d.MerkleProof
		}
		if w.LeafIndex == nil && d.LeafIndex != nil {
			st.LeafIndex = int64(*d.LeafIndex)
		}
	}
	return st, nil
}
