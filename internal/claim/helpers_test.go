package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/zkclaim/internal/poller"
	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/relay"
	"github.com/roach88/zkclaim/internal/store"
	"github.com/roach88/zkclaim/internal/testutil"
	"github.com/roach88/zkclaim/internal/vk"
)

var demoTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	demoDoctor  = Inputs{"procedure_code": "12345", "doctor_id": "67890", "date": "20240101"}
	demoPatient = Inputs{"patient_id": "54321", "claim_amount": "1000", "policy_limit": "5000"}
)

type proveCall struct {
	Role   string
	Inputs map[string]string

	// StatusCallsBefore is how many job-status requests the relay had
	// served when this proof was requested.
	StatusCallsBefore int
}

// fakeProver returns fixed public signals per role and records every call.
type fakeProver struct {
	mu      sync.Mutex
	signals map[string][]string
	errs    map[string]error
	hook    func(role string)
	relay   *testutil.FakeRelay
	calls   []proveCall
}

func (p *fakeProver) Prove(ctx context.Context, role string, inputs map[string]string) (*prover.ProofArtifact, error) {
	if p.hook != nil {
		p.hook(role)
	}
	call := proveCall{Role: role, Inputs: map[string]string{}}
	for k, v := range inputs {
		call.Inputs[k] = v
	}
	if p.relay != nil {
		call.StatusCallsBefore = p.relay.Count(testutil.OpJobStatus)
	}

	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()

	if err := p.errs[role]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &prover.ProofArtifact{
		Proof:         json.RawMessage(`{"pi_a":["1","2","1"],"protocol":"groth16"}`),
		PublicSignals: p.signals[role],
	}, nil
}

func (p *fakeProver) Calls() []proveCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]proveCall(nil), p.calls...)
}

type staticVKs struct{}

func (staticVKs) VerificationKey(role string) (json.RawMessage, error) {
	return json.RawMessage(`{"protocol":"groth16","role":"` + role + `"}`), nil
}

// missingVKs behaves like a build directory without key files.
type missingVKs struct{}

func (missingVKs) VerificationKey(role string) (json.RawMessage, error) {
	return nil, fmt.Errorf("open build/%s/%s_vk.json: %w", role, role, fs.ErrNotExist)
}

type failingReceipts struct{}

func (failingReceipts) SaveReceipt(context.Context, store.AggregationReceipt) error {
	return errors.New("disk full")
}

type testEnv struct {
	orch   *Orchestrator
	relay  *testutil.FakeRelay
	prover *fakeProver
	store  *store.Store
	clock  *testutil.FakeClock
}

type envOption func(*Deps, *Options, *poller.Config)

func withChainID(id uint64) envOption {
	return func(_ *Deps, o *Options, pc *poller.Config) {
		o.ChainID = id
		pc.Aggregate = id != 0
	}
}

func withMaxAttempts(n int) envOption {
	return func(_ *Deps, _ *Options, pc *poller.Config) { pc.MaxAttempts = n }
}

func withReceipts(r ReceiptSaver) envOption {
	return func(d *Deps, _ *Options, _ *poller.Config) { d.Receipts = r }
}

func withVKs(src VKSource) envOption {
	return func(d *Deps, _ *Options, _ *poller.Config) { d.VKs = src }
}

func withIDs(g IDGenerator) envOption {
	return func(d *Deps, _ *Options, _ *poller.Config) { d.IDs = g }
}

// newTestEnv wires a real registrar, relay client, poller and store
// against a FakeRelay and a FakeClock.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	fake := testutil.NewFakeRelay(t, "k")
	st, err := store.Open(filepath.Join(t.TempDir(), "claim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFakeClock(demoTime)
	client := relay.New(fake.URL(), "k", 5*time.Second)
	fp := &fakeProver{
		signals: map[string][]string{
			RoleDoctor:  {"H1", "1"},
			RolePatient: {"P1", "1"},
		},
		errs:  map[string]error{},
		relay: fake,
	}

	proofOpts := relay.ProofOptions{Library: "snarkjs", Curve: "bn128"}
	deps := Deps{
		Prover:    fp,
		VKs:       staticVKs{},
		Registrar: vk.NewRegistrar(st, client, proofOpts, nil, nil),
		Submitter: client,
		Receipts:  st,
		Runs:      st,
		IDs:       testutil.NewFixedIDGenerator("claim-1"),
	}
	o := Options{ProofOptions: proofOpts}
	pc := poller.DefaultConfig()
	pc.MaxWait = 0
	for _, opt := range opts {
		opt(&deps, &o, &pc)
	}
	deps.Poller = poller.New(client, pc, poller.WithClock(clock))

	orch := New(deps, o)
	orch.now = clock.Now
	return &testEnv{orch: orch, relay: fake, prover: fp, store: st, clock: clock}
}

// scriptHappyPath scripts registration and submission for both roles.
func (e *testEnv) scriptHappyPath() {
	e.relay.Script(testutil.OpRegisterVK,
		testutil.OK(map[string]any{"vkHash": "0xvk-doctor"}),
		testutil.OK(map[string]any{"meta": map[string]any{"vkHash": "0xvk-patient"}}),
	)
	e.relay.Script(testutil.OpSubmitProof,
		testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-doctor"}),
		testutil.OK(map[string]any{"optimisticVerify": "success", "jobId": "job-patient"}),
	)
}

func jobStatus(jobID string, s relay.JobState) testutil.Reply {
	return testutil.OK(map[string]any{"jobId": jobID, "status": string(s), "txHash": "0xtx-" + jobID})
}

func aggregated(jobID string) testutil.Reply {
	return testutil.OK(map[string]any{
		"jobId":         jobID,
		"status":        "Aggregated",
		"txHash":        "0xtx-" + jobID,
		"blockHash":     "0xblock",
		"aggregationId": 77,
		"merkleRoot":    "0xroot",
		"merklePath":    []string{"0xa", "0xb"},
		"leafIndex":     5,
		"leafDigest":    "0xleaf",
	})
}
