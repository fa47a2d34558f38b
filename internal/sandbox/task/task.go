// Package task holds the mutable record of one compile-and-run request.
package task

import (
	"fmt"
	"path/filepath"
	"time"

	"coderun/internal/sandbox/result"
	"coderun/internal/sandbox/spec"
	appErr "coderun/pkg/errors"
)

// Task is owned by a single request; it is not safe for concurrent use.
// File names are relative to WorkDir.
type Task struct {
	Language           string
	WorkDir            string
	SourceFile         string
	ExecutableFile     string
	CompileDiagnostics string
	Limits             spec.ResourceLimits

	Outcome      result.Outcome
	Signal       int
	Elapsed      time.Duration
	PeakMemoryKB int64
	Stdout       string
	Stderr       string

	attempt  int
	recorded bool
	failure  appErr.ErrorCode
}

// New creates a task for a source file already written into workDir.
func New(language, workDir, sourceFile string, limits spec.ResourceLimits) *Task {
	return &Task{
		Language:   language,
		WorkDir:    workDir,
		SourceFile: sourceFile,
		Limits:     limits,
	}
}

// Path resolves name inside the work dir.
func (t *Task) Path(name string) string {
	return filepath.Join(t.WorkDir, name)
}

// Compiled reports whether an executable is ready to run.
func (t *Task) Compiled() bool {
	return t.ExecutableFile != "" && t.CompileDiagnostics == ""
}

// CompileFailed reports whether compile diagnostics were recorded.
func (t *Task) CompileFailed() bool {
	return t.CompileDiagnostics != ""
}

// SetExecutable records a successful compile.
func (t *Task) SetExecutable(name string) {
	t.ExecutableFile = name
	t.CompileDiagnostics = ""
}

// FailCompile records compile diagnostics. Empty diagnostics are replaced
// so that a failed compile is never mistaken for a pending one.
func (t *Task) FailCompile(diagnostics string, exitCode int) {
	if diagnostics == "" {
		diagnostics = fmt.Sprintf("compilation failed with exit code %d", exitCode)
	}
	t.CompileDiagnostics = diagnostics
	t.ExecutableFile = ""
}

// BeginAttempt resets per-execution fields before a run.
func (t *Task) BeginAttempt() {
	t.attempt++
	t.recorded = false
	t.failure = 0
	t.Outcome = ""
	t.Signal = 0
	t.Elapsed = 0
	t.PeakMemoryKB = 0
	t.Stdout = ""
	t.Stderr = ""
}

// Attempt returns the number of execution attempts started.
func (t *Task) Attempt() int {
	return t.attempt
}

// Record stores a classification. It returns false if an outcome was
// already recorded for the current attempt.
func (t *Task) Record(c result.Classification) bool {
	if t.recorded {
		return false
	}
	t.recorded = true
	t.Outcome = c.Outcome
	t.Signal = c.Signal
	t.Stderr = c.Stderr
	return true
}

// Fail records an internal error. The message is copied into stdout, stderr
// and compile diagnostics, and the executable is cleared. A coded err keeps
// its code for Err; anything else reports SandboxInternalError.
func (t *Task) Fail(err error) bool {
	if t.recorded {
		return false
	}
	msg := "internal error"
	t.failure = appErr.SandboxInternalError
	if err != nil {
		msg = err.Error()
		if code := appErr.GetCode(err); code != appErr.InternalServerError {
			t.failure = code
		}
	}
	t.recorded = true
	t.Outcome = result.OutcomeInternalError
	t.Signal = 0
	t.Elapsed = 0
	t.PeakMemoryKB = 0
	t.Stdout = msg
	t.Stderr = msg
	t.CompileDiagnostics = msg
	t.ExecutableFile = ""
	return true
}

// Err maps the task state onto the error taxonomy. A successful run is nil.
func (t *Task) Err() error {
	if t.Outcome == result.OutcomeInternalError && t.failure != 0 {
		return appErr.New(t.failure).WithMessage(t.Stderr)
	}
	if t.Outcome.Executed() {
		if t.Outcome.Err() == nil {
			return nil
		}
		return appErr.New(t.Outcome.Code()).WithMessage(t.errMessage())
	}
	if t.CompileFailed() {
		return appErr.New(appErr.CompilationError).WithDetail("diagnostics", t.CompileDiagnostics)
	}
	return appErr.Newf(appErr.SandboxInternalError, "task for %s was never executed", t.Language)
}

func (t *Task) errMessage() string {
	switch t.Outcome {
	case result.OutcomeInternalError:
		return t.Stderr
	case result.OutcomeAbnormalTermination:
		return t.Outcome.Code().Message()
	default:
		return fmt.Sprintf("%s (signal %d)", t.Outcome.Code().Message(), t.Signal)
	}
}
