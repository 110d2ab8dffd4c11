package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/zkclaim/internal/config"
	"github.com/roach88/zkclaim/internal/testutil"
)

const testAPIKey = "test-key"

// fakeProverScript stands in for snarkjs. The doctor proof's first public
// signal is 0xdoctorhash; the patient proof is only produced when that
// hash was injected into its inputs.
const fakeProverScript = `#!/bin/sh
# args: groth16 fullprove input wasm zkey proof public
case "$4" in
  *doctor*)
    echo '["0xdoctorhash","1"]' > "$7" ;;
  *)
    grep -q '"doctor_proof_hash":"0xdoctorhash"' "$3" || { echo "missing doctor link" >&2; exit 1; }
    echo '["0xpatienthash","1"]' > "$7" ;;
esac
echo '{"pi_a":["1"],"protocol":"groth16"}' > "$6"
`

// cliEnv is a scratch installation: circuits, saved proofs, a database
// and a scripted relay, wired through the environment and a config file.
type cliEnv struct {
	dir       string
	relay     *testutil.FakeRelay
	db        string
	buildDir  string
	proofsDir string
	config    string
}

func newCLIEnv(t *testing.T, extraYAML string) *cliEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}

	dir := t.TempDir()
	e := &cliEnv{
		dir:       dir,
		relay:     testutil.NewFakeRelay(t, testAPIKey),
		db:        filepath.Join(dir, "zkclaim.db"),
		buildDir:  filepath.Join(dir, "build"),
		proofsDir: filepath.Join(dir, "proofs"),
		config:    filepath.Join(dir, "zkclaim.yaml"),
	}

	for _, role := range []string{"doctor", "patient"} {
		writeFile(t, filepath.Join(e.buildDir, role, role+".wasm"), "wasm")
		writeFile(t, filepath.Join(e.buildDir, role, role+"_final.zkey"), "zkey")
		writeFile(t, filepath.Join(e.buildDir, role, role+"_vk.json"), `{"protocol":"groth16","curve":"bn128","role":"`+role+`"}`)
	}

	snarkjs := filepath.Join(dir, "snarkjs")
	require.NoError(t, os.WriteFile(snarkjs, []byte(fakeProverScript), 0o755))

	writeFile(t, e.config, "artifacts:\n  snarkjs: "+snarkjs+"\n"+extraYAML)

	t.Setenv(config.EnvRelayURL, e.relay.URL())
	t.Setenv(config.EnvRelayKey, testAPIKey)
	t.Setenv(config.EnvChainID, "")
	t.Setenv(config.EnvDatabase, e.db)
	t.Setenv(config.EnvBuildDir, e.buildDir)
	t.Setenv(config.EnvProofsDir, e.proofsDir)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvPort, "")
	return e
}

// scriptHappyPath makes every relay call succeed with a Finalized job.
func (e *cliEnv) scriptHappyPath() {
	e.scriptSubmission()
	e.relay.Script(testutil.OpJobStatus,
		testutil.OK(map[string]any{"jobId": "job", "status": "Finalized", "txHash": "0xtx"}),
	)
}

// scriptSubmission accepts registrations and submissions for both roles
// and leaves job status unscripted.
func (e *cliEnv) scriptSubmission() {
	e.relay.Script(testutil.OpRegisterVK,
		testutil.OK(map[string]any{"vkHash": "0xvk-doctor"}),
		testutil.OK(map[string]any{"vkHash": "0xvk-patient"}),
	)
	e.relay.Script(testutil.OpSubmitProof,
		testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-doctor"}),
		testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-patient"}),
	)
}

// run executes the CLI against the env and returns stdout, stderr and
// the exit code.
func (e *cliEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), append([]string{"--config", e.config}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

// runJSON runs with --format json and decodes the response envelope.
func (e *cliEnv) runJSON(t *testing.T, data any, args ...string) (CLIResponse, int) {
	t.Helper()
	out, errOut, code := e.run(t, append([]string{"--format", "json"}, args...)...)

	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "stdout: %s\nstderr: %s", out, errOut)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse, code
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
