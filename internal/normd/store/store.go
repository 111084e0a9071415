// Package store persists slope-sweep run history in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexstat/pivotnorm/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS sweep_runs (
    id             BIGSERIAL PRIMARY KEY,
    best_slope     DOUBLE PRECISION NOT NULL,
    best_accuracy  DOUBLE PRECISION NOT NULL,
    candidates     INTEGER NOT NULL,
    train_docs     INTEGER NOT NULL,
    test_docs      INTEGER NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sweep_runs_accuracy ON sweep_runs (best_accuracy DESC);
`

// Run is one recorded sweep outcome.
type Run struct {
	ID           int64     `json:"id"`
	BestSlope    float64   `json:"best_slope"`
	BestAccuracy float64   `json:"best_accuracy"`
	Candidates   int       `json:"candidates"`
	TrainDocs    int       `json:"train_docs"`
	TestDocs     int       `json:"test_docs"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunStore reads and writes sweep history.
type RunStore struct {
	client *postgres.Client
	logger *slog.Logger
}

// New creates a RunStore and ensures the schema exists.
func New(ctx context.Context, client *postgres.Client) (*RunStore, error) {
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating sweep_runs schema: %w", err)
	}
	return &RunStore{
		client: client,
		logger: slog.Default().With("component", "run-store"),
	}, nil
}

// Record inserts one sweep outcome.
func (s *RunStore) Record(ctx context.Context, run Run) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sweep_runs (best_slope, best_accuracy, candidates, train_docs, test_docs)
			 VALUES ($1, $2, $3, $4, $5)`,
			run.BestSlope, run.BestAccuracy, run.Candidates, run.TrainDocs, run.TestDocs,
		)
		if err != nil {
			return fmt.Errorf("inserting sweep run: %w", err)
		}
		return nil
	})
}

// Best returns the highest-accuracy run on record.
func (s *RunStore) Best(ctx context.Context) (*Run, error) {
	row := s.client.DB.QueryRowContext(ctx,
		`SELECT id, best_slope, best_accuracy, candidates, train_docs, test_docs, created_at
		 FROM sweep_runs
		 ORDER BY best_accuracy DESC, best_slope ASC
		 LIMIT 1`,
	)
	var run Run
	err := row.Scan(&run.ID, &run.BestSlope, &run.BestAccuracy,
		&run.Candidates, &run.TrainDocs, &run.TestDocs, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying best sweep run: %w", err)
	}
	return &run, nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, best_slope, best_accuracy, candidates, train_docs, test_docs, created_at
		 FROM sweep_runs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.BestSlope, &run.BestAccuracy,
			&run.Candidates, &run.TrainDocs, &run.TestDocs, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning sweep run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
