// Package prover adapts external Groth16 tooling to the claim
// orchestrator: compiled circuit artifacts on disk, the snarkjs CLI, and
// proofs saved by an earlier run.
package prover

import (
	"encoding/json"
	"errors"
)

// ErrNoPublicSignals is returned when a proof carries no public signals
// and therefore no proof hash.
var ErrNoPublicSignals = errors.New("proof has no public signals")

// ProofArtifact is one generated proof. Values are never mutated after
// generation.
type ProofArtifact struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
}

// ProofHash returns PublicSignals[0], the circuit's proof_hash output.
func (a *ProofArtifact) ProofHash() (string, error) {
	if a == nil || len(a.PublicSignals) == 0 {
		return "", ErrNoPublicSignals
	}
	return a.PublicSignals[0], nil
}
