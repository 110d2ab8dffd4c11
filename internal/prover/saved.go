package prover

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// savedMu keeps a role's proof.json and public.json paired while claims
// save and load concurrently.
var savedMu sync.RWMutex

// LoadSaved reads a proof written by an earlier run from
// <dir>/<role>/proof.json and <dir>/<role>/public.json.
func LoadSaved(dir, role string) (*ProofArtifact, error) {
	savedMu.RLock()
	defer savedMu.RUnlock()
	return readProof(filepath.Join(dir, role))
}

// readProof reads proof.json and public.json from dir.
func readProof(dir string) (*ProofArtifact, error) {
	proof, err := os.ReadFile(filepath.Join(dir, "proof.json"))
	if err != nil {
		return nil, fmt.Errorf("read proof: %w", err)
	}
	if !json.Valid(proof) {
		return nil, fmt.Errorf("read proof: %s is not valid JSON", filepath.Join(dir, "proof.json"))
	}

	public, err := os.ReadFile(filepath.Join(dir, "public.json"))
	if err != nil {
		return nil, fmt.Errorf("read public signals: %w", err)
	}
	var signals []string
	if err := json.Unmarshal(public, &signals); err != nil {
		return nil, fmt.Errorf("decode public signals: %w", err)
	}
	if len(signals) == 0 {
		return nil, ErrNoPublicSignals
	}

	return &ProofArtifact{Proof: json.RawMessage(proof), PublicSignals: signals}, nil
}

// Save writes art to <dir>/<role>/proof.json and public.json so it can be
// verified again with LoadSaved. Both files are staged first and then
// renamed into place together.
func Save(dir, role string, art *ProofArtifact) error {
	out := filepath.Join(dir, role)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("save proof: %w", err)
	}
	public, err := json.Marshal(art.PublicSignals)
	if err != nil {
		return fmt.Errorf("save proof: %w", err)
	}

	stage, err := os.MkdirTemp(dir, "."+role+"-")
	if err != nil {
		return fmt.Errorf("save proof: %w", err)
	}
	defer os.RemoveAll(stage)

	if err := os.WriteFile(filepath.Join(stage, "proof.json"), art.Proof, 0o644); err != nil {
		return fmt.Errorf("save proof: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stage, "public.json"), public, 0o644); err != nil {
		return fmt.Errorf("save proof: %w", err)
	}

	savedMu.Lock()
	defer savedMu.Unlock()
	for _, name := range []string{"proof.json", "public.json"} {
		if err := os.Rename(filepath.Join(stage, name), filepath.Join(out, name)); err != nil {
			return fmt.Errorf("save proof: %w", err)
		}
	}
	return nil
}
