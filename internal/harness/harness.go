package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roach88/zkclaim/internal/claim"
	"github.com/roach88/zkclaim/internal/poller"
	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/relay"
	"github.com/roach88/zkclaim/internal/store"
	"github.com/roach88/zkclaim/internal/testutil"
	"github.com/roach88/zkclaim/internal/vk"
)

const (
	apiKey = "harness-key"

	// ClaimID is the fixed id of every scenario claim.
	ClaimID = "claim-scenario"
)

// startTime is the FakeClock origin.
var startTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// defaultSignals are the public signals returned when a scenario does not
// set proofs.
var defaultSignals = map[string][]string{
	claim.RoleDoctor:  {"0xdoctor", "1"},
	claim.RolePatient: {"0xpatient", "1"},
}

// Harness is one wired scenario run.
type Harness struct {
	scenario *Scenario
	relay    *testutil.FakeRelay
	store    *store.Store
	clock    *testutil.FakeClock
	prover   *scriptedProver
	orch     *claim.Orchestrator
}

// Run executes a scenario and returns the result.
//
// Each scenario runs with a fresh database, relay and clock. The returned
// error reports harness setup problems; scenario mismatches are in
// Result.Errors.
func Run(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	h, err := newHarness(t, s)
	if err != nil {
		return nil, err
	}
	return h.run(context.Background()), nil
}

func newHarness(t *testing.T, s *Scenario) (*Harness, error) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	t.Cleanup(func() { st.Close() })

	fake := testutil.NewFakeRelay(t, apiKey)
	script(fake, testutil.OpRegisterVK, s.Relay.RegisterVK)
	script(fake, testutil.OpSubmitProof, s.Relay.SubmitProof)
	script(fake, testutil.OpJobStatus, s.Relay.JobStatus)

	signals := maps.Clone(defaultSignals)
	maps.Copy(signals, s.Proofs)
	sp := &scriptedProver{signals: signals, inputs: map[string]map[string]string{}}

	clock := testutil.NewFakeClock(startTime)
	client := relay.New(fake.URL(), apiKey, 5*time.Second)
	proofOpts := relay.ProofOptions{Library: "snarkjs", Curve: "bn128"}

	orch := claim.New(claim.Deps{
		Prover:    sp,
		VKs:       roleVKs{},
		Registrar: vk.NewRegistrar(st, client, proofOpts, nil, nil),
		Submitter: client,
		Poller:    poller.New(client, s.pollerConfig(), poller.WithClock(clock)),
		Receipts:  st,
		Runs:      st,
		IDs:       testutil.NewFixedIDGenerator(ClaimID),
	}, claim.Options{
		ProofOptions: proofOpts,
		ChainID:      s.ChainID,
	})

	return &Harness{
		scenario: s,
		relay:    fake,
		store:    st,
		clock:    clock,
		prover:   sp,
		orch:     orch,
	}, nil
}

func (h *Harness) run(ctx context.Context) *Result {
	s := h.scenario
	c := claim.DemoClaim()
	if s.Claim.Doctor != nil {
		c.Doctor = claim.Inputs(s.Claim.Doctor)
	}
	if s.Claim.Patient != nil {
		c.Patient = claim.Inputs(s.Claim.Patient)
	}

	result := NewResult()
	res, err := h.orch.Run(ctx, c)
	result.Claim = res
	result.Err = err
	result.Outcome, result.FailedRole = classify(err)

	for i, call := range h.relay.Calls("") {
		result.Trace = append(result.Trace, TraceEvent{Seq: i + 1, Op: call.Op, JobID: call.JobID})
	}
	result.Sleeps = h.clock.Sleeps()

	if result.Outcome != s.Expect.Outcome {
		result.AddError(fmt.Sprintf("outcome: expected %s, got %s (%v)", s.Expect.Outcome, result.Outcome, err))
	}
	if s.Expect.Outcome != OutcomeSuccess && result.FailedRole != s.Expect.Role {
		result.AddError(fmt.Sprintf("failed role: expected %s, got %q", s.Expect.Role, result.FailedRole))
	}

	for i, a := range s.Assertions {
		if aerr := h.evaluate(ctx, result, a); aerr != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, aerr))
		}
	}
	return result
}

// classify maps an orchestrator error to an outcome and the failed role.
func classify(err error) (outcome, role string) {
	if err == nil {
		return OutcomeSuccess, ""
	}
	var pe *claim.PhaseError
	if errors.As(err, &pe) {
		role = pe.Role
	}
	switch {
	case claim.IsValidationError(err):
		return OutcomeValidation, role
	case claim.IsLinkageError(err):
		return OutcomeLinkage, role
	case vk.IsRegistrationError(err):
		return OutcomeRegistration, role
	case claim.IsSubmissionError(err):
		return OutcomeSubmission, role
	case poller.IsFailure(err):
		return OutcomeFailed, role
	case poller.IsTimeout(err):
		return OutcomeTimeout, role
	case poller.IsCancelled(err):
		return OutcomeCancelled, role
	}
	return OutcomeError, role
}

func script(fake *testutil.FakeRelay, op string, steps []ReplyStep) {
	for _, step := range steps {
		n := max(step.Repeat, 1)
		for i := 0; i < n; i++ {
			fake.Script(op, reply(step))
		}
	}
}

func reply(step ReplyStep) testutil.Reply {
	status := step.Status
	if status == 0 {
		status = http.StatusOK
	}
	if step.Body == nil {
		return testutil.Reply{Status: status, Body: http.StatusText(status)}
	}
	return testutil.Reply{Status: status, Body: step.Body}
}

// scriptedProver returns fixed public signals per role and records the
// inputs it was given.
type scriptedProver struct {
	mu      sync.Mutex
	signals map[string][]string
	inputs  map[string]map[string]string
}

func (p *scriptedProver) Prove(_ context.Context, role string, in map[string]string) (*prover.ProofArtifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputs[role] = maps.Clone(in)
	return &prover.ProofArtifact{
		Proof:         json.RawMessage(`{"pi_a":["1"],"protocol":"groth16"}`),
		PublicSignals: append([]string(nil), p.signals[role]...),
	}, nil
}

func (p *scriptedProver) input(role string) (map[string]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.inputs[role]
	return in, ok
}

// roleVKs serves a distinct verification key document per role.
type roleVKs struct{}

func (roleVKs) VerificationKey(role string) (json.RawMessage, error) {
	return json.RawMessage(`{"protocol":"groth16","role":"` + role + `"}`), nil
}
