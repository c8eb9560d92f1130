package etl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLog_Start(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO etl.run_log").
		WithArgs("run-1", "SEMILLAS").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	rl := NewRunLog(mock)
	id, err := rl.Start(context.Background(), "run-1", "SEMILLAS")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE etl.run_log").
		WithArgs(int64(120), []byte(`{"batches":3}`), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rl := NewRunLog(mock)
	err = rl.Complete(context.Background(), 42, &RunResult{
		RowsProcessed: 120,
		Metadata:      map[string]any{"batches": 3},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_CompleteNilResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE etl.run_log").
		WithArgs(int64(0), []byte(nil), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rl := NewRunLog(mock)
	require.NoError(t, rl.Complete(context.Background(), 42, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE etl.run_log").
		WithArgs("boom", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rl := NewRunLog(mock)
	require.NoError(t, rl.Fail(context.Background(), 42, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_LastSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT started_at FROM etl.run_log").
		WithArgs("SEMILLAS").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(want))

	rl := NewRunLog(mock)
	got, err := rl.LastSuccess(context.Background(), "SEMILLAS")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_LastSuccessNever(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT started_at FROM etl.run_log").
		WithArgs("PLANTAS").
		WillReturnError(fmt.Errorf("no rows in result set"))

	rl := NewRunLog(mock)
	got, err := rl.LastSuccess(context.Background(), "PLANTAS")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	completed := started.Add(5 * time.Minute)
	errMsg := "timeout"
	rows := pgxmock.NewRows([]string{
		"id", "run_id", "program", "status", "started_at", "completed_at", "rows_processed", "error", "metadata",
	}).
		AddRow(int64(2), "run-2", "FERTILIZANTES", "failed", started, &completed, int64(0), &errMsg, []byte(nil)).
		AddRow(int64(1), "run-1", "SEMILLAS", "complete", started, &completed, int64(120), (*string)(nil), []byte(`{"batches":3}`))
	mock.ExpectQuery("SELECT id, run_id, program, status").WillReturnRows(rows)

	rl := NewRunLog(mock)
	entries, err := rl.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, "timeout", entries[0].Error)
	assert.Equal(t, "run-1", entries[1].RunID)
	assert.Equal(t, int64(120), entries[1].RowsProcessed)
	assert.Equal(t, float64(3), entries[1].Metadata["batches"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
