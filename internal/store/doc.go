// Package store provides SQLite-backed durable storage for the claim
// orchestrator.
//
// Three tables:
//   - vk_cache: role → relay verification key id (read-mostly, upsert)
//   - aggregation_receipts: (claim_id, role) → aggregation receipt
//   - claim_runs: append-only phase outcome history
//
// # Concurrency
//
// Concurrent claims share one Store. Writes are single statements, so
// each is atomic. Two claims racing to register the same role both upsert
// vk_cache; the last write wins and both ids are valid at the relay.
// Receipts are keyed by claim id, so overlapping claims never clobber each
// other's receipt.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Timestamps are stored as Unix milliseconds.
package store
