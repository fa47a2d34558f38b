package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coderun/internal/coderun/model"
	"coderun/internal/coderun/repository"
	"coderun/internal/sandbox"
	"coderun/internal/sandbox/language"
	"coderun/internal/sandbox/task"
	appErr "coderun/pkg/errors"
	"coderun/pkg/utils/contextkey"
	"coderun/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxSourceBytes = 64 * 1024
	defaultMaxInputBytes  = 1 << 20
	defaultPersistTimeout = 3 * time.Second
)

// Executor compiles and runs one program.
type Executor interface {
	RunTask(ctx context.Context, req sandbox.RunRequest) (*task.Task, error)
	Describe() []language.Info
}

// ResultStore caches results by program digest and by run id.
type ResultStore interface {
	Lookup(ctx context.Context, digest string) (*model.RunResult, error)
	Store(ctx context.Context, digest string, result model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.RunResult, error)
	SaveRun(ctx context.Context, result model.RunResult) error
}

// Config holds service dependencies and settings. Results, Events and RunLog
// are optional.
type Config struct {
	Executor Executor
	Results  ResultStore
	Events   repository.EventPublisher
	RunLog   repository.RunLog

	MaxSourceBytes int
	MaxInputBytes  int
	// PersistTimeout bounds each cache, log and event write after a run.
	PersistTimeout time.Duration
	// CacheSuccess also serves successful runs from the digest cache. Off by
	// default since a program may print different output on each run.
	CacheSuccess bool
}

// Service validates run requests and records their results.
type Service struct {
	executor       Executor
	results        ResultStore
	events         repository.EventPublisher
	runLog         repository.RunLog
	maxSourceBytes int
	maxInputBytes  int
	persistTimeout time.Duration
	cacheSuccess   bool
	now            func() time.Time
	newID          func() string
}

// NewService creates a new run service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = defaultMaxSourceBytes
	}
	if cfg.MaxInputBytes <= 0 {
		cfg.MaxInputBytes = defaultMaxInputBytes
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	return &Service{
		executor:       cfg.Executor,
		results:        cfg.Results,
		events:         cfg.Events,
		runLog:         cfg.RunLog,
		maxSourceBytes: cfg.MaxSourceBytes,
		maxInputBytes:  cfg.MaxInputBytes,
		persistTimeout: cfg.PersistTimeout,
		cacheSuccess:   cfg.CacheSuccess,
		now:            time.Now,
		newID:          uuid.NewString,
	}, nil
}

// Languages lists the supported languages.
func (s *Service) Languages() []language.Info {
	return s.executor.Describe()
}

// Run executes one request. Only validation and unsupported languages are
// returned as errors; execution problems are part of the result.
func (s *Service) Run(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	runID := s.newID()
	ctx = context.WithValue(ctx, contextkey.RunID, runID)
	digest := repository.Digest(req.LanguageID, req.SourceCode, req.Input)

	if cached := s.lookup(ctx, digest); cached != nil {
		result := *cached
		result.RunID = runID
		result.Cached = true
		result.CreatedAt = s.now().Unix()
		logger.Info(ctx, "run served from cache", zap.String("language", result.LanguageID))
		s.persist(ctx, "", result)
		return &result, nil
	}

	t, err := s.executor.RunTask(ctx, sandbox.RunRequest{
		Language: req.LanguageID,
		Source:   req.SourceCode,
		Input:    req.Input,
	})
	if err != nil {
		return nil, err
	}
	result := model.NewRunResult(runID, t, s.now())
	logger.Info(ctx, "run finished",
		zap.String("language", result.LanguageID),
		zap.String("outcome", result.Outcome),
		zap.Int("code", int(result.Code)),
		zap.Int64("time_ms", result.TimeMs),
	)
	if s.cacheable(result) {
		s.persist(ctx, digest, result)
	} else {
		s.persist(ctx, "", result)
	}
	return &result, nil
}

// GetRun returns a past run from the cache, falling back to the run log.
func (s *Service) GetRun(ctx context.Context, runID string) (*model.RunResult, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, appErr.ValidationError("run_id", "required")
	}
	if s.results != nil {
		result, err := s.results.GetRun(ctx, runID)
		if err != nil {
			logger.Warn(ctx, "load run from cache failed", zap.String("run_id", runID), zap.Error(err))
		} else if result != nil {
			return result, nil
		}
	}
	if s.runLog != nil {
		return s.runLog.Get(ctx, runID)
	}
	return nil, appErr.New(appErr.NotFound).WithMessage("run not found")
}

func (s *Service) validate(req model.RunRequest) error {
	if strings.TrimSpace(req.LanguageID) == "" {
		return appErr.ValidationError("language_id", "required")
	}
	if req.SourceCode == "" {
		return appErr.ValidationError("source_code", "required")
	}
	if len(req.SourceCode) > s.maxSourceBytes {
		return appErr.Newf(appErr.CodeTooLarge, "source code exceeds %d bytes", s.maxSourceBytes)
	}
	if len(req.Input) > s.maxInputBytes {
		return appErr.Newf(appErr.InputTooLarge, "input exceeds %d bytes", s.maxInputBytes)
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, digest string) *model.RunResult {
	if s.results == nil {
		return nil
	}
	result, err := s.results.Lookup(ctx, digest)
	if err != nil {
		logger.Warn(ctx, "result cache lookup failed", zap.Error(err))
		return nil
	}
	if result == nil || !s.cacheable(*result) {
		return nil
	}
	return result
}

func (s *Service) cacheable(result model.RunResult) bool {
	return result.Deterministic() || (s.cacheSuccess && result.Code == appErr.Success)
}

// persist writes result to every configured sink. Failures are logged and
// never change the result. An empty digest skips the digest cache.
func (s *Service) persist(ctx context.Context, digest string, result model.RunResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	if s.results != nil {
		if digest != "" {
			stored := result
			stored.Cached = false
			if err := s.results.Store(ctx, digest, stored); err != nil {
				logger.Warn(ctx, "store cached result failed", zap.Error(err))
			}
		}
		if err := s.results.SaveRun(ctx, result); err != nil {
			logger.Warn(ctx, "save run failed", zap.Error(err))
		}
	}
	if s.runLog != nil {
		if err := s.runLog.Insert(ctx, result); err != nil {
			logger.Warn(ctx, "insert run log failed", zap.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.PublishRunCompleted(ctx, result); err != nil {
			logger.Warn(ctx, "publish run event failed", zap.Error(err))
		}
	}
}
