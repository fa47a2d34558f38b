// Package sandbox is the entrypoint callers use to compile and run one
// program under the guard.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"time"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/language"
	"coderun/internal/sandbox/observer"
	"coderun/internal/sandbox/runner"
	"coderun/internal/sandbox/task"
	appErr "coderun/pkg/errors"
	"coderun/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultCompileTimeout = 30 * time.Second
	defaultWorkDirMode    = os.FileMode(0o755)
)

// Config controls work dir handling and compile bounds.
type Config struct {
	// WorkRoot holds one fresh directory per task; empty uses the system temp dir.
	WorkRoot     string
	KeepWorkDirs bool
	// CompileTimeout bounds every compile or syntax check.
	CompileTimeout time.Duration
	// WorkDirMode must let the guard identity read the work dir.
	WorkDirMode os.FileMode
}

// RunRequest is one program to compile and run.
type RunRequest struct {
	Language string
	Source   string
	Input    string
}

// Sandbox compiles and runs programs. It is safe for concurrent use.
type Sandbox struct {
	cfg      Config
	registry *language.Registry
	engine   engine.Engine
	runner   *runner.Runner
	metrics  observer.MetricsRecorder
}

// New creates a sandbox. Compile steps run through eng directly; guarded
// runs go through r.
func New(cfg Config, registry *language.Registry, eng engine.Engine, r *runner.Runner, metrics observer.MetricsRecorder) (*Sandbox, error) {
	if registry == nil || eng == nil || r == nil {
		return nil, fmt.Errorf("registry, engine and runner are required")
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaultCompileTimeout
	}
	if cfg.WorkDirMode == 0 {
		cfg.WorkDirMode = defaultWorkDirMode
	}
	if cfg.WorkRoot != "" {
		if err := os.MkdirAll(cfg.WorkRoot, cfg.WorkDirMode); err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
	}
	return &Sandbox{
		cfg:      cfg,
		registry: registry,
		engine:   eng,
		runner:   r,
		metrics:  observer.OrNoop(metrics),
	}, nil
}

// Languages lists the supported language ids in advertised order.
func (s *Sandbox) Languages() []string {
	return s.registry.IDs()
}

// Describe lists the supported languages with their versions.
func (s *Sandbox) Describe() []language.Info {
	return s.registry.Describe()
}

// RunTask compiles req.Source and, if that succeeds, runs it with req.Input.
// Only an unsupported language is returned as an error; every other failure
// is recorded in the returned task.
func (s *Sandbox) RunTask(ctx context.Context, req RunRequest) (*task.Task, error) {
	lang, err := s.registry.Get(req.Language)
	if err != nil {
		return nil, err
	}

	t, cleanup := s.prepare(ctx, lang, req.Source)
	defer cleanup()
	if t.Outcome.Executed() {
		return t, nil
	}

	if err := s.compile(ctx, lang, t); err != nil {
		t.Fail(err)
		logger.Warn(ctx, "compile step failed",
			zap.String("language", lang.ID()),
			zap.Error(err),
		)
		return t, nil
	}
	if t.CompileFailed() {
		return t, nil
	}

	s.runner.Run(ctx, lang, t, req.Input)
	return t, nil
}

// prepare creates the work dir and writes the source. Failures are recorded
// on the returned task.
func (s *Sandbox) prepare(ctx context.Context, lang language.Language, source string) (*task.Task, func()) {
	t := task.New(lang.ID(), "", lang.SourceName(), lang.Limits())
	noop := func() {}

	dir, err := os.MkdirTemp(s.cfg.WorkRoot, "coderun-"+lang.ID()+"-")
	if err != nil {
		t.Fail(appErr.Wrapf(err, appErr.SandboxInternalError, "create work dir failed: %v", err))
		return t, noop
	}
	t.WorkDir = dir
	cleanup := func() {
		if s.cfg.KeepWorkDirs {
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn(ctx, "remove work dir failed", zap.String("work_dir", dir), zap.Error(err))
		}
	}

	if err := os.Chmod(dir, s.cfg.WorkDirMode); err != nil {
		t.Fail(appErr.Wrapf(err, appErr.SandboxInternalError, "chmod work dir failed: %v", err))
		return t, cleanup
	}
	if err := os.WriteFile(t.Path(t.SourceFile), []byte(source), 0o644); err != nil {
		t.Fail(appErr.Wrapf(err, appErr.SandboxInternalError, "write source failed: %v", err))
		return t, cleanup
	}
	return t, cleanup
}

func (s *Sandbox) compile(ctx context.Context, lang language.Language, t *task.Task) error {
	compileCtx, cancel := context.WithTimeout(ctx, s.cfg.CompileTimeout)
	defer cancel()

	start := time.Now()
	err := lang.Compile(compileCtx, s.engine, t)
	elapsed := time.Since(start)
	s.metrics.ObserveCompile(ctx, lang.ID(), err == nil && t.Compiled(), elapsed)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "compile finished",
		zap.String("language", lang.ID()),
		zap.Bool("ok", t.Compiled()),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}
