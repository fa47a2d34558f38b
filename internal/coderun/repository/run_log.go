package repository

import (
	"context"
	"time"

	"coderun/internal/coderun/model"
	"coderun/internal/common/db"
	appErr "coderun/pkg/errors"
)

const (
	insertRunSQL = `INSERT INTO run_log (run_id, language_id, outcome, signal_no, code, compile_diagnostics, stdout, stderr, time_ms, memory_kb, cached, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectRunSQL = `SELECT run_id, language_id, outcome, signal_no, code, compile_diagnostics, stdout, stderr, time_ms, memory_kb, cached, created_at
FROM run_log WHERE run_id = ?`
)

// RunLog is the durable record of finished runs.
type RunLog interface {
	Insert(ctx context.Context, result model.RunResult) error
	Get(ctx context.Context, runID string) (*model.RunResult, error)
}

// SQLRunLog stores runs in the run_log table.
type SQLRunLog struct {
	provider db.Provider
}

// NewSQLRunLog creates a run log backed by the provider's database.
func NewSQLRunLog(provider db.Provider) *SQLRunLog {
	return &SQLRunLog{provider: provider}
}

// Insert appends one run.
func (l *SQLRunLog) Insert(ctx context.Context, result model.RunResult) error {
	if result.RunID == "" {
		return appErr.ValidationError("run_id", "required")
	}
	database, err := db.CurrentDatabase(l.provider)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "run log database unavailable")
	}
	_, err = database.Exec(ctx, insertRunSQL,
		result.RunID,
		result.LanguageID,
		result.Outcome,
		result.Signal,
		int(result.Code),
		result.CompileDiagnostics,
		result.Stdout,
		result.Stderr,
		result.TimeMs,
		result.MemoryKB,
		result.Cached,
		time.Unix(result.CreatedAt, 0).UTC(),
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "insert run log failed")
	}
	return nil
}

// Get returns one run or a NotFound error.
func (l *SQLRunLog) Get(ctx context.Context, runID string) (*model.RunResult, error) {
	if runID == "" {
		return nil, appErr.ValidationError("run_id", "required")
	}
	database, err := db.CurrentDatabase(l.provider)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "run log database unavailable")
	}
	var (
		result    model.RunResult
		code      int
		createdAt time.Time
	)
	err = database.QueryRow(ctx, selectRunSQL, runID).Scan(
		&result.RunID,
		&result.LanguageID,
		&result.Outcome,
		&result.Signal,
		&code,
		&result.CompileDiagnostics,
		&result.Stdout,
		&result.Stderr,
		&result.TimeMs,
		&result.MemoryKB,
		&result.Cached,
		&createdAt,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.NotFound).WithMessage("run not found")
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load run log failed")
	}
	result.Code = appErr.ErrorCode(code)
	result.CreatedAt = createdAt.Unix()
	return &result, nil
}
