package store

import (
	"context"
	"fmt"
	"time"
)

// ClaimRun records the outcome of one claim phase.
type ClaimRun struct {
	ID         int64     `json:"id"`
	ClaimID    string    `json:"claimId"`
	Role       string    `json:"role"`
	JobID      string    `json:"jobId,omitempty"`
	ProofHash  string    `json:"proofHash,omitempty"`
	Outcome    string    `json:"outcome"`
	Status     string    `json:"status,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RecordRun appends a phase outcome and returns its row id.
func (s *Store) RecordRun(ctx context.Context, run ClaimRun) (int64, error) {
	if run.ClaimID == "" || run.Role == "" || run.Outcome == "" {
		return 0, fmt.Errorf("record run: claim id, role and outcome are required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_runs
		(claim_id, role, job_id, proof_hash, outcome, status, tx_hash, detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ClaimID,
		run.Role,
		run.JobID,
		run.ProofHash,
		run.Outcome,
		run.Status,
		run.TxHash,
		run.Detail,
		toMillis(run.StartedAt),
		toMillis(run.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record run: last insert id: %w", err)
	}
	return id, nil
}

// RunsByClaim returns the recorded phases of a claim in insertion order.
// Returns an empty slice (not nil) when the claim has no runs.
func (s *Store) RunsByClaim(ctx context.Context, claimID string) ([]ClaimRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, role, job_id, proof_hash, outcome, status, tx_hash, detail, started_at, finished_at
		FROM claim_runs
		WHERE claim_id = ?
		ORDER BY id ASC
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("query claim runs: %w", err)
	}
	defer rows.Close()

	runs := []ClaimRun{}
	for rows.Next() {
		var (
			r                   ClaimRun
			startedAt, finished int64
		)
		if err := rows.Scan(
			&r.ID,
			&r.ClaimID,
			&r.Role,
			&r.JobID,
			&r.ProofHash,
			&r.Outcome,
			&r.Status,
			&r.TxHash,
			&r.Detail,
			&startedAt,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("scan claim run: %w", err)
		}
		r.StartedAt = fromMillis(startedAt)
		r.FinishedAt = fromMillis(finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim runs: %w", err)
	}
	return runs, nil
}
