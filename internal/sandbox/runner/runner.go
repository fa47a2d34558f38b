// Package runner executes compiled tasks under the guard and classifies
// the results.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/language"
	"coderun/internal/sandbox/observer"
	"coderun/internal/sandbox/result"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
	appErr "coderun/pkg/errors"
	"coderun/pkg/utils/logger"

	"go.uber.org/zap"
)

// Files written in the task work dir for every execution.
const (
	InputFile  = "prog.in"
	OutputFile = "prog.out"
	ErrorFile  = "prog.err"
)

// DefaultStdoutMaxBytes caps the stdout returned to callers.
const DefaultStdoutMaxBytes int64 = 1 << 20

// AdmissionMode selects how a run behaves when the gate is full.
type AdmissionMode string

const (
	AdmissionWait   AdmissionMode = "wait"
	AdmissionReject AdmissionMode = "reject"
)

// Gate bounds concurrent guarded executions under one identity.
type Gate interface {
	Acquire(ctx context.Context, n int64) error
	TryAcquire(n int64) bool
	Release(n int64)
}

// Config controls the runner.
type Config struct {
	Guard            spec.Guard
	StdoutMaxBytes   int64
	AdmissionMode    AdmissionMode
	AdmissionTimeout time.Duration
}

// Runner spawns guarded commands. It is safe for concurrent use as long as
// each task is used by one goroutine.
type Runner struct {
	cfg     Config
	engine  engine.Engine
	gate    Gate
	metrics observer.MetricsRecorder
}

// NewRunner creates a runner. A nil gate admits everything.
func NewRunner(eng engine.Engine, gate Gate, metrics observer.MetricsRecorder, cfg Config) (*Runner, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Guard.Path == "" {
		return nil, appErr.ValidationError("guard.path", "required")
	}
	if cfg.Guard.User == "" {
		return nil, appErr.ValidationError("guard.user", "required")
	}
	if cfg.StdoutMaxBytes <= 0 {
		cfg.StdoutMaxBytes = DefaultStdoutMaxBytes
	}
	switch cfg.AdmissionMode {
	case "":
		cfg.AdmissionMode = AdmissionWait
	case AdmissionWait, AdmissionReject:
	default:
		return nil, appErr.ValidationError("admission.mode", "must be wait or reject")
	}
	return &Runner{
		cfg:     cfg,
		engine:  eng,
		gate:    gate,
		metrics: observer.OrNoop(metrics),
	}, nil
}

// Guard returns the guard the runner invokes.
func (r *Runner) Guard() spec.Guard {
	return r.cfg.Guard
}

// Run executes a compiled task with input as stdin. Every failure is
// recorded on the task as INTERNAL_ERROR; nothing is returned.
func (r *Runner) Run(ctx context.Context, lang language.Language, t *task.Task, input string) {
	t.BeginAttempt()
	if err := r.run(ctx, lang, t, input); err != nil {
		t.Fail(err)
		logger.Warn(ctx, "guarded execution failed",
			zap.String("language", lang.ID()),
			zap.String("work_dir", t.WorkDir),
			zap.Error(err),
		)
	}
	r.metrics.ObserveRun(ctx, lang.ID(), string(t.Outcome), t.Elapsed, t.PeakMemoryKB)
}

func (r *Runner) run(ctx context.Context, lang language.Language, t *task.Task, input string) error {
	if !t.Compiled() {
		return appErr.New(appErr.SandboxInternalError).WithMessage("task has no executable to run")
	}

	stdinPath := ""
	if input != "" {
		stdinPath = t.Path(InputFile)
		if err := os.WriteFile(stdinPath, []byte(input), 0o644); err != nil {
			return appErr.Wrapf(err, appErr.SandboxInternalError, "write %s failed: %v", InputFile, err)
		}
	}

	release, err := r.admit(ctx, lang)
	if err != nil {
		return err
	}
	cmd := engine.Command{
		Args:       lang.RunCommand(r.cfg.Guard, t),
		WorkDir:    t.WorkDir,
		StdinPath:  stdinPath,
		StdoutPath: t.Path(OutputFile),
		StderrPath: t.Path(ErrorFile),
	}
	res, err := r.engine.Exec(ctx, cmd)
	release()
	if err != nil {
		return appErr.Wrapf(err, appErr.SandboxInternalError, "spawn guard failed: %v", err)
	}
	if res.Killed {
		return appErr.Newf(appErr.SandboxInternalError, "execution aborted: %v", context.Cause(ctx))
	}

	stdout, err := engine.ReadFilePrefix(t.Path(OutputFile), r.cfg.StdoutMaxBytes)
	if err != nil {
		return appErr.Wrapf(err, appErr.SandboxInternalError, "read stdout failed: %v", err)
	}
	stderr, err := engine.ReadFile(t.Path(ErrorFile))
	if err != nil {
		return appErr.Wrapf(err, appErr.SandboxInternalError, "read stderr failed: %v", err)
	}

	t.Record(result.Classify(stderr))
	t.Elapsed = res.Elapsed
	t.PeakMemoryKB = res.PeakMemoryKB
	t.Stdout = lang.FilterOutput(stdout)

	logger.Debug(ctx, "guarded execution finished",
		zap.String("language", lang.ID()),
		zap.String("outcome", string(t.Outcome)),
		zap.Int("signal", t.Signal),
		zap.Duration("elapsed", t.Elapsed),
	)
	return nil
}

// admit takes the language's weight from the gate and returns its release.
func (r *Runner) admit(ctx context.Context, lang language.Language) (func(), error) {
	if r.gate == nil {
		return func() {}, nil
	}
	weight := lang.AdmissionWeight()
	start := time.Now()

	if r.cfg.AdmissionMode == AdmissionReject {
		if !r.gate.TryAcquire(weight) {
			r.metrics.ObserveAdmission(ctx, lang.ID(), 0, false)
			return nil, appErr.New(appErr.SandboxBusy).WithMessage("execution capacity exhausted")
		}
	} else {
		waitCtx := ctx
		if r.cfg.AdmissionTimeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, r.cfg.AdmissionTimeout)
			defer cancel()
		}
		if err := r.gate.Acquire(waitCtx, weight); err != nil {
			r.metrics.ObserveAdmission(ctx, lang.ID(), time.Since(start), false)
			return nil, appErr.Wrapf(err, appErr.SandboxBusy, "waiting for execution capacity: %v", err)
		}
	}

	r.metrics.ObserveAdmission(ctx, lang.ID(), time.Since(start), true)
	return func() { r.gate.Release(weight) }, nil
}
