package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore opens a fresh store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { s.Close() })
	return s
}

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func sampleReceipt(claimID, role string) AggregationReceipt {
	return AggregationReceipt{
		ClaimID:       claimID,
		Role:          role,
		Root:          "0xroot",
		MerklePath:    []string{"0xa1", "0xb2", "0xc3"},
		LeafIndex:     7,
		LeafDigest:    "0xleaf",
		AggregationID: "42",
		ProofHash:     "0xproofhash",
		TxHash:        "0xtx",
	}
}
