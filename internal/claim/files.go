package claim

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/zkclaim/internal/prover"
)

// FileResult is the verification outcome of one saved proof.
type FileResult struct {
	Role      string `json:"proofType"`
	Verified  bool   `json:"verified"`
	JobID     string `json:"jobId,omitempty"`
	Status    string `json:"status,omitempty"`
	ProofHash string `json:"proofHash,omitempty"`
	Error     string `json:"error,omitempty"`

	Err error `json:"-"`
}

// VerifyFiles verifies the saved doctor and patient proofs under
// proofsDir concurrently. A missing or rejected proof is reported in its
// FileResult and does not stop the other role.
func (o *Orchestrator) VerifyFiles(ctx context.Context, claimID, proofsDir string) []FileResult {
	if claimID == "" {
		claimID = o.deps.IDs.Generate()
	}
	roles := []string{RoleDoctor, RolePatient}
	results := make([]FileResult, len(roles))

	var g errgroup.Group
	for i, role := range roles {
		i, role := i, role
		g.Go(func() error {
			results[i] = o.verifyFile(ctx, claimID, proofsDir, role)
			return nil
		})
	}
	_ = g.Wait()

	verified := 0
	for _, r := range results {
		if r.Verified {
			verified++
		}
	}
	o.log.Info("saved proofs verified",
		zap.String("claim", claimID),
		zap.Int("verified", verified),
		zap.Int("total", len(results)))
	return results
}

func (o *Orchestrator) verifyFile(ctx context.Context, claimID, proofsDir, role string) FileResult {
	res := FileResult{Role: role}

	art, err := prover.LoadSaved(proofsDir, role)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.ProofHash, _ = art.ProofHash()

	pr, err := o.VerifySaved(ctx, claimID, role, art)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.Verified = true
	res.JobID = pr.JobID
	res.Status = pr.Status
	return res
}

// AllVerified reports whether every result verified.
func AllVerified(results []FileResult) bool {
	for _, r := range results {
		if !r.Verified {
			return false
		}
	}
	return len(results) > 0
}
