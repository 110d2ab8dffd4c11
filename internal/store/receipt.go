package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AggregationReceipt is the relay's aggregation metadata for one proof,
// kept for the on-chain approval step.
//
// JSON names follow the receipt file consumed by the dApp.
type AggregationReceipt struct {
	ClaimID       string    `json:"claimId"`
	Role          string    `json:"role"`
	Root          string    `json:"root"`
	MerklePath    []string  `json:"path"`
	LeafIndex     int64     `json:"index"`
	LeafDigest    string    `json:"leaf"`
	AggregationID string    `json:"aggregationId"`
	ProofHash     string    `json:"proofHash"`
	TxHash        string    `json:"txHash"`
	SavedAt       time.Time `json:"timestamp"`
}

// SaveReceipt upserts the receipt for (ClaimID, Role). A zero SavedAt is
// stamped with the current time.
func (s *Store) SaveReceipt(ctx context.Context, r AggregationReceipt) error {
	if r.ClaimID == "" || r.Role == "" {
		return fmt.Errorf("save receipt: claim id and role are required")
	}
	if r.SavedAt.IsZero() {
		r.SavedAt = s.now()
	}

	pathJSON, err := marshalPath(r.MerklePath)
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aggregation_receipts
		(claim_id, role, root, merkle_path, leaf_index, leaf_digest, aggregation_id, proof_hash, tx_hash, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, role) DO UPDATE SET
			root = excluded.root,
			merkle_path = excluded.merkle_path,
			leaf_index = excluded.leaf_index,
			leaf_digest = excluded.leaf_digest,
			aggregation_id = excluded.aggregation_id,
			proof_hash = excluded.proof_hash,
			tx_hash = excluded.tx_hash,
			saved_at = excluded.saved_at
	`,
		r.ClaimID,
		r.Role,
		r.Root,
		pathJSON,
		r.LeafIndex,
		r.LeafDigest,
		r.AggregationID,
		r.ProofHash,
		r.TxHash,
		toMillis(r.SavedAt),
	)
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	return nil
}

// LatestReceipt returns the most recently saved receipt for role, or
// ErrNotFound.
func (s *Store) LatestReceipt(ctx context.Context, role string) (AggregationReceipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT claim_id, role, root, merkle_path, leaf_index, leaf_digest, aggregation_id, proof_hash, tx_hash, saved_at
		FROM aggregation_receipts
		WHERE role = ?
		ORDER BY saved_at DESC, rowid DESC
		LIMIT 1
	`, role)
	return scanReceipt(row)
}

// ReadReceipt returns the receipt for (claimID, role), or ErrNotFound.
func (s *Store) ReadReceipt(ctx context.Context, claimID, role string) (AggregationReceipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT claim_id, role, root, merkle_path, leaf_index, leaf_digest, aggregation_id, proof_hash, tx_hash, saved_at
		FROM aggregation_receipts
		WHERE claim_id = ? AND role = ?
	`, claimID, role)
	return scanReceipt(row)
}

// ReceiptsByClaim returns every receipt saved for claimID ordered by role.
// Returns an empty slice (not nil) when none exist.
func (s *Store) ReceiptsByClaim(ctx context.Context, claimID string) ([]AggregationReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_id, role, root, merkle_path, leaf_index, leaf_digest, aggregation_id, proof_hash, tx_hash, saved_at
		FROM aggregation_receipts
		WHERE claim_id = ?
		ORDER BY role ASC
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []AggregationReceipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (AggregationReceipt, error) {
	var (
		r        AggregationReceipt
		pathJSON string
		savedAt  int64
	)
	err := row.Scan(
		&r.ClaimID,
		&r.Role,
		&r.Root,
		&pathJSON,
		&r.LeafIndex,
		&r.LeafDigest,
		&r.AggregationID,
		&r.ProofHash,
		&r.TxHash,
		&savedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return AggregationReceipt{}, ErrNotFound
	}
	if err != nil {
		return AggregationReceipt{}, fmt.Errorf("scan receipt: %w", err)
	}

	r.MerklePath, err = unmarshalPath(pathJSON)
	if err != nil {
		return AggregationReceipt{}, fmt.Errorf("scan receipt: %w", err)
	}
	r.SavedAt = fromMillis(savedAt)
	return r, nil
}
