package prover

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifacts locates compiled circuits under BuildDir:
//
//	<BuildDir>/<role>/<role>.wasm
//	<BuildDir>/<role>/<role>_final.zkey
//	<BuildDir>/<role>/<role>_vk.json
type Artifacts struct {
	BuildDir string
}

// WASM returns the witness generator path for role.
func (a Artifacts) WASM(role string) string {
	return filepath.Join(a.BuildDir, role, role+".wasm")
}

// ZKey returns the proving key path for role.
func (a Artifacts) ZKey(role string) string {
	return filepath.Join(a.BuildDir, role, role+"_final.zkey")
}

// VKPath returns the verification key path for role.
func (a Artifacts) VKPath(role string) string {
	return filepath.Join(a.BuildDir, role, role+"_vk.json")
}

// VerificationKey reads and checks the verification key for role.
func (a Artifacts) VerificationKey(role string) (json.RawMessage, error) {
	data, err := os.ReadFile(a.VKPath(role))
	if err != nil {
		return nil, fmt.Errorf("read %s verification key: %w", role, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("read %s verification key: %s is not valid JSON", role, a.VKPath(role))
	}
	return json.RawMessage(data), nil
}

// Check reports the first missing artifact for role.
func (a Artifacts) Check(role string) error {
	for _, p := range []string{a.WASM(role), a.ZKey(role), a.VKPath(role)} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%s artifact: %w", role, err)
		}
	}
	return nil
}
