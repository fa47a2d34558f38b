package model

import (
	"time"

	"coderun/internal/sandbox/task"
	appErr "coderun/pkg/errors"
)

// RunRequest is the body of a run submission.
type RunRequest struct {
	LanguageID string `json:"language_id"`
	SourceCode string `json:"source_code"`
	Input      string `json:"input"`
}

// RunResult is the public view of one finished task.
type RunResult struct {
	RunID              string           `json:"run_id"`
	LanguageID         string           `json:"language_id"`
	Outcome            string           `json:"outcome"`
	Signal             int              `json:"signal"`
	CompileDiagnostics string           `json:"compile_diagnostics"`
	Stdout             string           `json:"stdout"`
	Stderr             string           `json:"stderr"`
	TimeMs             int64            `json:"time_ms"`
	MemoryKB           int64            `json:"memory_kb"`
	Cached             bool             `json:"cached"`
	Code               appErr.ErrorCode `json:"code"`
	CreatedAt          int64            `json:"created_at"`
}

// NewRunResult snapshots t. Code is Success for a successful run.
func NewRunResult(runID string, t *task.Task, now time.Time) RunResult {
	code := appErr.Success
	if err := t.Err(); err != nil {
		code = appErr.GetCode(err)
	}
	return RunResult{
		RunID:              runID,
		LanguageID:         t.Language,
		Outcome:            string(t.Outcome),
		Signal:             t.Signal,
		CompileDiagnostics: t.CompileDiagnostics,
		Stdout:             t.Stdout,
		Stderr:             t.Stderr,
		TimeMs:             t.Elapsed.Milliseconds(),
		MemoryKB:           t.PeakMemoryKB,
		Code:               code,
		CreatedAt:          now.Unix(),
	}
}

// Deterministic reports whether rerunning the same program and input would
// give the same result, so the result may be reused. Program output can
// depend on time or randomness, so only compile failures qualify.
func (r RunResult) Deterministic() bool {
	return r.Code == appErr.CompilationError
}
