package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SnarkJS proves with the snarkjs CLI:
//
//	snarkjs groth16 fullprove input.json <wasm> <zkey> proof.json public.json
//
// Each call works in its own temp dir, so concurrent claims do not share
// files.
type SnarkJS struct {
	Bin       string
	Artifacts Artifacts

	// SaveDir, when set, receives a copy of every proof (see Save).
	SaveDir string

	Logger *zap.Logger
}

// Prove writes inputs to a temp file, runs fullprove and reads the proof
// back. Canceling ctx kills the snarkjs process.
func (s *SnarkJS) Prove(ctx context.Context, role string, inputs map[string]string) (*ProofArtifact, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := s.Artifacts.Check(role); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "zkclaim-"+role+"-")
	if err != nil {
		return nil, fmt.Errorf("prove %s: %w", role, err)
	}
	defer os.RemoveAll(dir)

	input, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("prove %s: encode inputs: %w", role, err)
	}
	inputPath := filepath.Join(dir, "input.json")
	if err := os.WriteFile(inputPath, input, 0o600); err != nil {
		return nil, fmt.Errorf("prove %s: %w", role, err)
	}

	bin := s.Bin
	if bin == "" {
		bin = "snarkjs"
	}
	cmd := exec.CommandContext(ctx, bin, "groth16", "fullprove",
		inputPath,
		s.Artifacts.WASM(role),
		s.Artifacts.ZKey(role),
		filepath.Join(dir, "proof.json"),
		filepath.Join(dir, "public.json"),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("prove %s: %s: %w", role, strings.TrimSpace(stderr.String()), err)
	}
	log.Debug("proof generated", zap.String("role", role), zap.Duration("took", time.Since(start)))

	art, err := readProof(dir)
	if err != nil {
		return nil, fmt.Errorf("prove %s: %w", role, err)
	}
	if s.SaveDir != "" {
		if err := Save(s.SaveDir, role, art); err != nil {
			log.Warn("keep proof copy", zap.String("role", role), zap.Error(err))
		}
	}
	return art, nil
}
