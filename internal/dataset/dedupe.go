package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"trainhub/pkg/database"
)

// DedupeStore is the persistent index of accepted content hashes,
// backed by a sqlite table. The hash column is the primary key, so
// claiming a hash is an atomic check-and-insert: under concurrent
// ingestion exactly one caller wins.
//
// There is no cross-process locking. Single-instance operation is a
// load-bearing assumption for this store.
type DedupeStore struct {
	db *sql.DB
}

func OpenDedupeStore(datasetDir string) (*DedupeStore, error) {
	db, err := database.Open(database.DefaultConfig(datasetDir))
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			hash      TEXT PRIMARY KEY,
			sample_id TEXT,
			timestamp TEXT
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create samples table: %w", err)
	}

	return &DedupeStore{db: db}, nil
}

func (s *DedupeStore) Close() error { return s.db.Close() }

// Seen reports whether hash has already been ingested.
func (s *DedupeStore) Seen(ctx context.Context, hash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query hash: %w", err)
	}
	return n > 0, nil
}

// Claim inserts hash if it is new and reports whether this caller won
// the claim. A false return with nil error means the hash was already
// present.
func (s *DedupeStore) Claim(ctx context.Context, hash, sampleID, timestamp string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO samples (hash, sample_id, timestamp)
		VALUES (?, ?, ?)
	`, hash, sampleID, timestamp)
	if err != nil {
		return false, fmt.Errorf("insert hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Release removes a claim. Used to roll back when persisting the
// sample's files fails after the hash was claimed.
func (s *DedupeStore) Release(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("delete hash: %w", err)
	}
	return nil
}

// Count returns the number of recorded hashes.
func (s *DedupeStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hashes: %w", err)
	}
	return n, nil
}
