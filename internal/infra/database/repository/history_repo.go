// Package repository provides SQLite repository implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/probelab/benchforge/internal/domain/history"
)

var (
	// ErrRunNotFound is returned when a saved run does not exist.
	ErrRunNotFound = errors.New("run not found")
)

// SQLiteHistoryRepository persists run records in SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a repository on an initialized
// database.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Save stores one run record with its results in a single transaction.
// Run identifiers are unique; saving the same run twice is an error.
func (r *SQLiteHistoryRepository) Save(ctx context.Context, record *history.Record) error {
	summaryJSON, err := json.Marshal(record.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, suite, concrete, mode, state, started_at, duration_ms, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Suite,
		record.Concrete,
		record.Mode,
		record.State,
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		float64(record.Duration)/float64(time.Millisecond),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.ID, err)
	}

	for _, res := range record.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results (run_id, test_id, label, kind, measurement)
			VALUES (?, ?, ?, ?, ?)`,
			record.ID, res.TestID, res.Label, res.Kind, res.Measurement,
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", res.Label, err)
		}
	}

	return tx.Commit()
}

// GetByID loads one run record with its results.
func (r *SQLiteHistoryRepository) GetByID(ctx context.Context, id string) (*history.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, suite, concrete, mode, state, started_at, duration_ms, summary_json
		FROM runs WHERE id = ?`, id)

	record, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT test_id, label, kind, measurement
		FROM results WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res history.Result
		if err := rows.Scan(&res.TestID, &res.Label, &res.Kind, &res.Measurement); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		record.Results = append(record.Results, res)
	}
	return record, rows.Err()
}

// List returns the newest runs first, without their per-result rows.
// A non-positive limit returns everything.
func (r *SQLiteHistoryRepository) List(ctx context.Context, limit int) ([]*history.Record, error) {
	query := `
		SELECT id, suite, concrete, mode, state, started_at, duration_ms, summary_json
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []*history.Record
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were
// removed. Result rows follow their run via the cascading foreign key.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*history.Record, error) {
	var record history.Record
	var startedAt, summaryJSON string
	var durationMS float64

	err := row.Scan(
		&record.ID,
		&record.Suite,
		&record.Concrete,
		&record.Mode,
		&record.State,
		&startedAt,
		&durationMS,
		&summaryJSON,
	)
	if err != nil {
		return nil, err
	}

	record.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	record.Duration = time.Duration(durationMS * float64(time.Millisecond))

	if err := json.Unmarshal([]byte(summaryJSON), &record.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &record, nil
}
