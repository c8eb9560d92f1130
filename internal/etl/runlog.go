package etl

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agroproductivo/etl-cli/internal/db"
	"github.com/rotisserie/eris"
)

// RunEntry represents a row in etl.run_log.
type RunEntry struct {
	ID            int64          `json:"id"`
	RunID         string         `json:"run_id"`
	Program       string         `json:"program"`
	Status        string         `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	RowsProcessed int64          `json:"rows_processed"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// RunResult holds the outcome of a run phase, passed to Complete().
type RunResult struct {
	RowsProcessed int64          `json:"rows_processed"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// RunLog provides read/write access to the etl.run_log table.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a new RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// LastSuccess returns the started_at time of the most recent successful run
// for a program. Returns nil if the program has never completed a run.
func (r *RunLog) LastSuccess(ctx context.Context, program string) (*time.Time, error) {
	var t time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT started_at FROM etl.run_log
		 WHERE program = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		program,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "runlog: last success for %s", program)
	}
	return &t, nil
}

// Start records the beginning of a run phase and returns the row ID.
func (r *RunLog) Start(ctx context.Context, runID, program string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO etl.run_log (run_id, program, status, started_at)
		 VALUES ($1, $2, 'running', now()) RETURNING id`,
		runID, program,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "runlog: start run for %s", program)
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (r *RunLog) Complete(ctx context.Context, id int64, result *RunResult) error {
	var metaJSON []byte
	if result != nil && result.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(result.Metadata)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}

	rowsProcessed := int64(0)
	if result != nil {
		rowsProcessed = result.RowsProcessed
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE etl.run_log
		 SET status = 'complete', completed_at = now(), rows_processed = $1, metadata = $2
		 WHERE id = $3`,
		rowsProcessed, metaJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %d", id)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, id int64, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE etl.run_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %d", id)
	}
	return nil
}

// ListAll returns all run log entries ordered by most recent first.
func (r *RunLog) ListAll(ctx context.Context) ([]RunEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, run_id, program, status, started_at, completed_at, rows_processed, error, metadata
		 FROM etl.run_log ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list all")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Program, &e.Status, &e.StartedAt, &completedAt, &e.RowsProcessed, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
