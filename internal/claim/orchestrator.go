// Package claim runs the two-phase insurance claim: a doctor proof, then a
// patient proof bound to it.
//
// Each phase is strictly sequential:
//
//	prove → register vk → submit → poll → persist receipt → record run
//
// The patient phase never starts unless the doctor phase reached Success,
// and the doctor's proof hash (its first public signal) is injected into
// the patient inputs before the patient proof is generated.
//
// Independent claims may run concurrently on one Orchestrator; they share
// only the VK cache and the receipt store.
package claim

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/config"
	"github.com/roach88/zkclaim/internal/metrics"
	"github.com/roach88/zkclaim/internal/poller"
	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/relay"
	"github.com/roach88/zkclaim/internal/store"
)

// Prover generates a Groth16 proof for role from named inputs.
type Prover interface {
	Prove(ctx context.Context, role string, inputs map[string]string) (*prover.ProofArtifact, error)
}

// VKSource returns the verification key document for role.
type VKSource interface {
	VerificationKey(role string) (json.RawMessage, error)
}

// Registrar maps a role's verification key to its relay id. load is only
// called when the id is not cached.
type Registrar interface {
	Resolve(ctx context.Context, role string, load func() (json.RawMessage, error)) (string, error)
}

// Submitter sends a proof to the relay.
type Submitter interface {
	SubmitProof(ctx context.Context, req relay.SubmitRequest) (*relay.SubmitResponse, error)
}

// Poller waits for a submitted job to finish.
type Poller interface {
	Poll(ctx context.Context, job poller.Job) (poller.Outcome, error)
}

// ReceiptSaver persists aggregation receipts.
type ReceiptSaver interface {
	SaveReceipt(ctx context.Context, r store.AggregationReceipt) error
}

// RunRecorder appends phase outcomes to the run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run store.ClaimRun) (int64, error)
}

// Deps are the collaborators of an Orchestrator. Receipts, Runs, IDs,
// Metrics and Logger are optional.
type Deps struct {
	Prover    Prover
	VKs       VKSource
	Registrar Registrar
	Submitter Submitter
	Poller    Poller
	Receipts  ReceiptSaver
	Runs      RunRecorder
	IDs       IDGenerator
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Options tune how proofs are submitted and linked.
type Options struct {
	ProofOptions relay.ProofOptions

	// ChainID is sent with every submission when non-zero.
	ChainID uint64

	// LinkField is the patient input that receives the doctor proof hash.
	LinkField string

	// AggregationRole is the role whose aggregation receipt is persisted.
	AggregationRole string
}

// OptionsFromConfig extracts Options from the resolved configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ProofOptions:    relay.ProofOptions{Library: cfg.Proof.Library, Curve: cfg.Proof.Curve},
		ChainID:         cfg.Relay.ChainID,
		LinkField:       cfg.Claim.LinkField,
		AggregationRole: cfg.Claim.AggregationRole,
	}
}

// Claim is one doctor + patient request.
type Claim struct {
	// ID is generated when empty.
	ID      string
	Doctor  Inputs
	Patient Inputs
}

// ProofResult is the success payload of one phase.
type ProofResult struct {
	Role          string                    `json:"role"`
	ProofHash     string                    `json:"proofHash"`
	JobID         string                    `json:"jobId"`
	Status        string                    `json:"status"`
	TxHash        string                    `json:"txHash,omitempty"`
	BlockHash     string                    `json:"blockHash,omitempty"`
	AggregationID string                    `json:"aggregationId,omitempty"`
	PublicSignals []string                  `json:"publicSignals"`
	Receipt       *store.AggregationReceipt `json:"receipt,omitempty"`
}

// Result is the success payload of a full claim.
type Result struct {
	ClaimID string       `json:"claimId"`
	Doctor  *ProofResult `json:"doctor"`
	Patient *ProofResult `json:"patient"`
}

// Orchestrator runs claim phases against the relay.
type Orchestrator struct {
	deps Deps
	opts Options
	now  func() time.Time
	log  *zap.Logger
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.IDs == nil {
		deps.IDs = UUIDv7Generator{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LinkField == "" {
		opts.LinkField = "doctor_proof_hash"
	}
	if opts.AggregationRole == "" {
		opts.AggregationRole = RolePatient
	}
	return &Orchestrator{
		deps: deps,
		opts: opts,
		now:  time.Now,
		log:  log,
	}
}

// Run executes the doctor phase, then the patient phase linked to it.
// Both input sets are validated before anything is proven.
func (o *Orchestrator) Run(ctx context.Context, c Claim) (*Result, error) {
	if c.ID == "" {
		c.ID = o.deps.IDs.Generate()
	}
	if err := ValidateDoctor(c.Doctor); err != nil {
		return nil, &PhaseError{ClaimID: c.ID, Role: RoleDoctor, Stage: StageValidate, Err: err}
	}
	if err := ValidatePatient(c.Patient); err != nil {
		return nil, &PhaseError{ClaimID: c.ID, Role: RolePatient, Stage: StageValidate, Err: err}
	}

	log := o.log.With(zap.String("claim", c.ID))
	log.Info("claim started")

	doctor, err := o.runPhase(ctx, c.ID, RoleDoctor, c.Doctor)
	if err != nil {
		log.Warn("doctor phase failed, patient phase skipped", zap.Error(err))
		return nil, err
	}

	patient, err := o.runPatient(ctx, c.ID, c.Patient, doctor.ProofHash)
	if err != nil {
		log.Warn("patient phase failed", zap.Error(err))
		return nil, err
	}

	log.Info("claim verified",
		zap.String("doctor_job", doctor.JobID),
		zap.String("patient_job", patient.JobID))
	return &Result{ClaimID: c.ID, Doctor: doctor, Patient: patient}, nil
}

// RunDoctorFlow runs the doctor phase alone.
func (o *Orchestrator) RunDoctorFlow(ctx context.Context, claimID string, in Inputs) (*ProofResult, error) {
	if claimID == "" {
		claimID = o.deps.IDs.Generate()
	}
	if err := ValidateDoctor(in); err != nil {
		return nil, &PhaseError{ClaimID: claimID, Role: RoleDoctor, Stage: StageValidate, Err: err}
	}
	return o.runPhase(ctx, claimID, RoleDoctor, in)
}

// RunPatientFlow runs the patient phase bound to doctorProofHash.
func (o *Orchestrator) RunPatientFlow(ctx context.Context, claimID string, in Inputs, doctorProofHash string) (*ProofResult, error) {
	if claimID == "" {
		claimID = o.deps.IDs.Generate()
	}
	if err := ValidatePatient(in); err != nil {
		return nil, &PhaseError{ClaimID: claimID, Role: RolePatient, Stage: StageValidate, Err: err}
	}
	return o.runPatient(ctx, claimID, in, doctorProofHash)
}

func (o *Orchestrator) runPatient(ctx context.Context, claimID string, in Inputs, doctorProofHash string) (*ProofResult, error) {
	if doctorProofHash == "" {
		return nil, &PhaseError{
			ClaimID: claimID,
			Role:    RolePatient,
			Stage:   StageValidate,
			Err:     &LinkageError{Message: "patient phase requires the doctor proof hash"},
		}
	}
	return o.runPhase(ctx, claimID, RolePatient, in.With(o.opts.LinkField, doctorProofHash))
}

// VerifySaved registers, submits and polls a proof generated earlier,
// without invoking the prover.
func (o *Orchestrator) VerifySaved(ctx context.Context, claimID, role string, art *prover.ProofArtifact) (*ProofResult, error) {
	if claimID == "" {
		claimID = o.deps.IDs.Generate()
	}
	ph := o.newPhase(claimID, role)
	if _, err := art.ProofHash(); err != nil {
		return nil, ph.fail(ctx, StageValidate, err)
	}
	return o.verify(ctx, ph, art)
}

// phase carries the bookkeeping of one running phase.
type phase struct {
	claimID string
	role    string
	wall    time.Time
	run     store.ClaimRun
	o       *Orchestrator
	log     *zap.Logger
}

func (o *Orchestrator) newPhase(claimID, role string) *phase {
	started := o.now()
	return &phase{
		claimID: claimID,
		role:    role,
		wall:    time.Now(),
		run:     store.ClaimRun{ClaimID: claimID, Role: role, StartedAt: started},
		o:       o,
		log:     o.log.With(zap.String("claim", claimID), zap.String("role", role)),
	}
}

func (o *Orchestrator) runPhase(ctx context.Context, claimID, role string, in Inputs) (*ProofResult, error) {
	ph := o.newPhase(claimID, role)
	ph.log.Info("generating proof", zap.String("inputs", in.Digest()))

	art, err := o.deps.Prover.Prove(ctx, role, in)
	if err != nil {
		return nil, ph.fail(ctx, StageProve, err)
	}
	if _, err := art.ProofHash(); err != nil {
		return nil, ph.fail(ctx, StageProve, err)
	}
	return o.verify(ctx, ph, art)
}

// verify runs register → submit → poll → receipt for a generated proof.
func (o *Orchestrator) verify(ctx context.Context, ph *phase, art *prover.ProofArtifact) (*ProofResult, error) {
	hash, _ := art.ProofHash()
	ph.run.ProofHash = hash

	vkID, err := o.deps.Registrar.Resolve(ctx, ph.role, func() (json.RawMessage, error) {
		return o.deps.VKs.VerificationKey(ph.role)
	})
	if err != nil {
		return nil, ph.fail(ctx, StageRegister, err)
	}

	resp, err := o.deps.Submitter.SubmitProof(ctx, relay.SubmitRequest{
		ProofType:    relay.ProofTypeGroth16,
		VKRegistered: true,
		ProofOptions: o.opts.ProofOptions,
		ProofData: relay.ProofData{
			Proof:         art.Proof,
			PublicSignals: art.PublicSignals,
			VK:            vkID,
		},
		ChainID: o.opts.ChainID,
	})
	if err != nil {
		se := &SubmissionError{Role: ph.role, Cause: err}
		var he *relay.HTTPError
		if errors.As(err, &he) {
			se.Body = he.Body
		}
		return nil, ph.fail(ctx, StageSubmit, se)
	}
	ph.run.JobID = resp.JobID
	if !resp.Accepted() {
		return nil, ph.fail(ctx, StageSubmit, &SubmissionError{
			Role:             ph.role,
			JobID:            resp.JobID,
			OptimisticVerify: resp.OptimisticVerify,
			Body:             string(resp.Raw),
		})
	}
	ph.log.Info("proof submitted", zap.String("job", resp.JobID))

	out, err := o.deps.Poller.Poll(ctx, poller.Job{
		ID:          resp.JobID,
		Role:        ph.role,
		SubmittedAt: o.now(),
	})
	if err != nil {
		return nil, ph.fail(ctx, StagePoll, err)
	}
	if out.Status != nil {
		ph.run.Status = string(out.Status.Status)
		ph.run.TxHash = out.Status.TxHash
	}
	if err := out.Err(); err != nil {
		ph.run.Outcome = string(out.Kind)
		ph.run.Detail = out.Detail
		return nil, ph.finish(ctx, StagePoll, err)
	}

	st := out.Status
	result := &ProofResult{
		Role:          ph.role,
		ProofHash:     hash,
		JobID:         resp.JobID,
		Status:        string(st.Status),
		TxHash:        st.TxHash,
		BlockHash:     st.BlockHash,
		AggregationID: st.AggregationID,
		PublicSignals: art.PublicSignals,
	}
	result.Receipt = o.saveReceipt(ctx, ph, hash, st)

	ph.run.Outcome = string(poller.Success)
	_ = ph.finish(ctx, "", nil)
	return result, nil
}

// saveReceipt persists the aggregation receipt for the aggregation role.
// Write failures are logged and swallowed.
func (o *Orchestrator) saveReceipt(ctx context.Context, ph *phase, hash string, st *relay.JobStatus) *store.AggregationReceipt {
	if ph.role != o.opts.AggregationRole || o.opts.ChainID == 0 {
		return nil
	}
	if !st.HasAggregation() {
		ph.log.Warn("aggregated job carries no aggregation metadata", zap.String("job", st.JobID))
		return nil
	}
	r := ReceiptFromStatus(ph.claimID, ph.role, hash, st, o.now())
	if o.deps.Receipts == nil {
		return &r
	}
	if err := o.deps.Receipts.SaveReceipt(context.WithoutCancel(ctx), r); err != nil {
		ph.log.Error("save aggregation receipt", zap.Error(err))
	}
	return &r
}

// ReceiptFromStatus builds the aggregation receipt for a finished job.
// proofHash is the phase's own first public signal.
func ReceiptFromStatus(claimID, role, proofHash string, st *relay.JobStatus, savedAt time.Time) store.AggregationReceipt {
	path := st.MerklePath
	if path == nil {
		path = []string{}
	}
	return store.AggregationReceipt{
		ClaimID:       claimID,
		Role:          role,
		Root:          st.MerkleRoot,
		MerklePath:    append([]string(nil), path...),
		LeafIndex:     st.LeafIndex,
		LeafDigest:    st.LeafDigest,
		AggregationID: st.AggregationID,
		ProofHash:     proofHash,
		TxHash:        st.TxHash,
		SavedAt:       savedAt.UTC(),
	}
}

// fail classifies err, records the run and wraps err in a PhaseError.
// An error caused by the caller's context ending is reported as
// cancelled.
func (ph *phase) fail(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil && !poller.IsCancelled(err) {
		err = &poller.CancelledError{JobID: ph.run.JobID, Cause: errors.Join(ctx.Err(), err)}
	}
	switch {
	case poller.IsCancelled(err):
		ph.run.Outcome = string(poller.Cancelled)
	default:
		ph.run.Outcome = "error"
	}
	ph.run.Detail = err.Error()
	return ph.finish(ctx, stage, err)
}

// finish records the run, observes metrics and wraps a non-nil err.
func (ph *phase) finish(ctx context.Context, stage string, err error) error {
	o := ph.o
	ph.run.FinishedAt = o.now()

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	o.deps.Metrics.ObservePhase(ph.role, result, ph.wall)

	if o.deps.Runs != nil {
		if _, rerr := o.deps.Runs.RecordRun(context.WithoutCancel(ctx), ph.run); rerr != nil {
			ph.log.Error("record claim run", zap.Error(rerr))
		}
	}

	if err == nil {
		ph.log.Info("phase verified", zap.String("job", ph.run.JobID), zap.String("status", ph.run.Status))
		return nil
	}
	ph.log.Warn("phase failed",
		zap.String("stage", stage),
		zap.String("outcome", ph.run.Outcome),
		zap.Error(err))
	return &PhaseError{ClaimID: ph.claimID, Role: ph.role, Stage: stage, Err: err}
}
