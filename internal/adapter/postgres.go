package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresAdapter is the reference Adapter implementation over a SQL
// store, backed by database/sql and the lib/pq driver. It implements
// the claim algorithm as an optimistic read followed by a conditional
// UPDATE keyed on updatedAt, looping on lost races.
//
// A store that supports SELECT ... FOR UPDATE SKIP LOCKED could trade
// this portable CAS for reduced retries under contention; the external
// contract of Adapter would be unchanged either way.
type PostgresAdapter struct {
	db    *sql.DB
	table string
}

// NewPostgresAdapter constructs a PostgresAdapter against the given
// table, which must already exist (see migrations/0001_create_jobs_table.sql).
// An empty table name defaults to "jobs".
func NewPostgresAdapter(db *sql.DB, model string) (*PostgresAdapter, error) {
	if model == "" {
		model = "jobs"
	}
	if model != "jobs" {
		return nil, &ModelNameError{Name: model}
	}
	return &PostgresAdapter{db: db, table: model}, nil
}

func (a *PostgresAdapter) Schedule(ctx context.Context, spec ScheduleSpec) (*JobRecord, error) {
	id := uuid.NewString()
	now := time.Now()

	row := a.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, handler, args, queue, priority, run_at,
			attempts, max_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $8)
		RETURNING id, handler, args, queue, priority, run_at,
			locked_at, locked_by, attempts, max_attempts, last_error, failed_at,
			created_at, updated_at
	`, a.table),
		id, spec.Handler, spec.Args, spec.Queue, spec.Priority, spec.RunAt,
		EffectiveMaxAttempts(spec.MaxAttempts), now,
	)

	return scanRecord(row)
}

// Find implements the claim algorithm from the Adapter contract: an
// optimistic read of the best candidate ordered by (priority ASC,
// runAt ASC, id ASC), followed by a conditional UPDATE that fails (zero
// rows affected) if another worker won the race. On a lost race it
// loops back to the read step, bounded by maxClaimRetries.
const maxClaimRetries = 8

func (a *PostgresAdapter) Find(ctx context.Context, opts FindOptions) (*JobRecord, error) {
	for attempt := 0; attempt < maxClaimRetries; attempt++ {
		now := time.Now()
		staleBefore := now.Add(-opts.MaxRuntime)

		query := fmt.Sprintf(`
			SELECT id, handler, args, queue, priority, run_at,
				locked_at, locked_by, attempts, max_attempts, last_error, failed_at,
				created_at, updated_at
			FROM %s
			WHERE (locked_at IS NULL OR locked_at < $1)
				AND failed_at IS NULL
				AND run_at <= $2
				AND ($3 = '' OR queue = $3)
			ORDER BY priority ASC, run_at ASC, id ASC
			LIMIT 1
		`, a.table)

		row := a.db.QueryRowContext(ctx, query, staleBefore, now, opts.Queue)
		candidate, err := scanRecord(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		update := fmt.Sprintf(`
			UPDATE %s
			SET locked_at = $1, locked_by = $2, attempts = attempts + 1, updated_at = $1
			WHERE id = $3
				AND (locked_at IS NULL OR locked_at < $4)
				AND failed_at IS NULL
				AND run_at <= $1
				AND updated_at = $5
		`, a.table)

		res, err := a.db.ExecContext(ctx, update, now, opts.ProcessName, candidate.ID, staleBefore, candidate.UpdatedAt)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Lost the race to another worker; retry the read.
			continue
		}

		candidate.LockedAt = &now
		lockedBy := opts.ProcessName
		candidate.LockedBy = &lockedBy
		candidate.Attempts++
		candidate.UpdatedAt = now
		return candidate, nil
	}

	return nil, nil
}

func (a *PostgresAdapter) Success(ctx context.Context, record *JobRecord) error {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, a.table), record.ID)
	return err
}

func (a *PostgresAdapter) Failure(ctx context.Context, record *JobRecord, cause error, maxAttempts int) error {
	now := time.Now()
	errMsg := FormatError(cause)

	if record.Attempts < EffectiveMaxAttempts(maxAttempts) {
		runAt := now.Add(backoffDuration(record.Attempts))
		_, err := a.db.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET run_at = $1, locked_at = NULL, locked_by = NULL,
				last_error = $2, updated_at = $3
			WHERE id = $4
		`, a.table), runAt, errMsg, now, record.ID)
		return err
	}

	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET failed_at = $1, run_at = NULL, locked_at = NULL, locked_by = NULL,
			last_error = $2, updated_at = $1
		WHERE id = $3
	`, a.table), now, errMsg, record.ID)
	return err
}

func (a *PostgresAdapter) Clear(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, a.table))
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*JobRecord, error) {
	var j JobRecord
	if err := row.Scan(
		&j.ID, &j.Handler, &j.Args, &j.Queue, &j.Priority, &j.RunAt,
		&j.LockedAt, &j.LockedBy, &j.Attempts, &j.MaxAttempts, &j.LastError, &j.FailedAt,
		&j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &j, nil
}
