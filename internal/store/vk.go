package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// VerificationKeyRecord is a cached relay registration for a role.
type VerificationKeyRecord struct {
	Role      string    `json:"role"`
	VKID      string    `json:"vkHash"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetVK returns the cached vk id for role. found is false on a cache miss.
func (s *Store) GetVK(ctx context.Context, role string) (vkID string, found bool, err error) {
	rec, err := s.ReadVK(ctx, role)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.VKID, true, nil
}

// ReadVK returns the full cache record for role, or ErrNotFound.
func (s *Store) ReadVK(ctx context.Context, role string) (VerificationKeyRecord, error) {
	var (
		rec       VerificationKeyRecord
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT role, vk_id, created_at
		FROM vk_cache
		WHERE role = ?
	`, role).Scan(&rec.Role, &rec.VKID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return VerificationKeyRecord{}, ErrNotFound
	}
	if err != nil {
		return VerificationKeyRecord{}, fmt.Errorf("read vk %q: %w", role, err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

// PutVK stores the vk id for role. Last write wins.
func (s *Store) PutVK(ctx context.Context, role, vkID string) error {
	if role == "" || vkID == "" {
		return fmt.Errorf("put vk: role and vk id are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vk_cache (role, vk_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(role) DO UPDATE SET
			vk_id = excluded.vk_id,
			created_at = excluded.created_at
	`, role, vkID, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("put vk %q: %w", role, err)
	}
	return nil
}

// ListVKs returns every cached registration ordered by role.
func (s *Store) ListVKs(ctx context.Context) ([]VerificationKeyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, vk_id, created_at
		FROM vk_cache
		ORDER BY role ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query vk cache: %w", err)
	}
	defer rows.Close()

	records := []VerificationKeyRecord{}
	for rows.Next() {
		var (
			rec       VerificationKeyRecord
			createdAt int64
		)
		if err := rows.Scan(&rec.Role, &rec.VKID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan vk: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vk cache: %w", err)
	}
	return records, nil
}
