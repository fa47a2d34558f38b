package main

import (
	"fmt"
	"os"
	"time"

	"coderun/internal/common/cache"
	"coderun/internal/common/db"
	"coderun/internal/common/mq"
	"coderun/internal/sandbox"
	"coderun/internal/sandbox/language"
	"coderun/internal/sandbox/runner"
	"coderun/internal/sandbox/spec"
	"coderun/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr         = "0.0.0.0:8090"
	defaultReadTimeout      = 5 * time.Second
	defaultWriteTimeout     = 120 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 30 * time.Second
	defaultGuardPath        = "/usr/local/bin/runguard"
	defaultGuardUser        = "coderunner"
	defaultAdmissionSlots   = 64
	defaultCacheTTL         = 24 * time.Hour
	defaultEventsTopic      = "coderun.runs.completed"
	defaultMetricsPath      = "/metrics"
	defaultPersistTimeout   = 3 * time.Second
	defaultMaxSourceBytes   = 64 * 1024
	defaultMaxInputBytes    = 1 << 20
	defaultStdoutMaxBytes   = 1 << 20
	defaultCompileTimeout   = 30 * time.Second
	defaultAdmissionTimeout = 30 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// SandboxConfig holds guard and work dir settings.
type SandboxConfig struct {
	GuardPath      string        `yaml:"guardPath"`
	User           string        `yaml:"user"`
	WorkRoot       string        `yaml:"workRoot"`
	KeepWorkDirs   bool          `yaml:"keepWorkDirs"`
	StdoutMaxBytes int64         `yaml:"stdoutMaxBytes"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	// Env is appended to the environment of every spawned process.
	Env []string `yaml:"env"`
}

// AdmissionConfig holds the execution gate settings.
type AdmissionConfig struct {
	Capacity int64         `yaml:"capacity"`
	Mode     string        `yaml:"mode"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	MaxSourceBytes int `yaml:"maxSourceBytes"`
	MaxInputBytes  int `yaml:"maxInputBytes"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	// SuccessResults also reuses successful runs. Compile failures are
	// always reused when the cache is enabled.
	SuccessResults bool `yaml:"successResults"`
}

// EventsConfig holds run event settings.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
}

// RunLogConfig holds run log settings.
type RunLogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AppConfig holds coderun-service config.
type AppConfig struct {
	Server         ServerConfig                 `yaml:"server"`
	Logger         logger.Config                `yaml:"logger"`
	Sandbox        SandboxConfig                `yaml:"sandbox"`
	Admission      AdmissionConfig              `yaml:"admission"`
	Languages      map[string]language.Override `yaml:"languages"`
	Limits         LimitsConfig                 `yaml:"limits"`
	Redis          cache.RedisConfig            `yaml:"redis"`
	Cache          CacheConfig                  `yaml:"cache"`
	Kafka          mq.KafkaConfig               `yaml:"kafka"`
	Events         EventsConfig                 `yaml:"events"`
	Database       db.MySQLConfig               `yaml:"database"`
	RunLog         RunLogConfig                 `yaml:"runLog"`
	Metrics        MetricsConfig                `yaml:"metrics"`
	PersistTimeout time.Duration                `yaml:"persistTimeout"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Sandbox.GuardPath == "" {
		cfg.Sandbox.GuardPath = defaultGuardPath
	}
	if cfg.Sandbox.User == "" {
		cfg.Sandbox.User = defaultGuardUser
	}
	if cfg.Sandbox.StdoutMaxBytes <= 0 {
		cfg.Sandbox.StdoutMaxBytes = defaultStdoutMaxBytes
	}
	if cfg.Sandbox.CompileTimeout <= 0 {
		cfg.Sandbox.CompileTimeout = defaultCompileTimeout
	}

	if cfg.Admission.Capacity <= 0 {
		cfg.Admission.Capacity = defaultAdmissionSlots
	}
	switch runner.AdmissionMode(cfg.Admission.Mode) {
	case "":
		cfg.Admission.Mode = string(runner.AdmissionWait)
	case runner.AdmissionWait, runner.AdmissionReject:
	default:
		return fmt.Errorf("admission mode %q must be wait or reject", cfg.Admission.Mode)
	}
	if cfg.Admission.Timeout == 0 {
		cfg.Admission.Timeout = defaultAdmissionTimeout
	}

	if cfg.Limits.MaxSourceBytes <= 0 {
		cfg.Limits.MaxSourceBytes = defaultMaxSourceBytes
	}
	if cfg.Limits.MaxInputBytes <= 0 {
		cfg.Limits.MaxInputBytes = defaultMaxInputBytes
	}

	if cfg.Cache.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when the result cache is enabled")
		}
		cfg.Redis.ApplyDefaults()
		if cfg.Cache.TTL == 0 {
			cfg.Cache.TTL = defaultCacheTTL
		}
	}
	if cfg.Events.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when run events are enabled")
		}
		if cfg.Events.Topic == "" {
			cfg.Events.Topic = defaultEventsTopic
		}
	}
	if cfg.RunLog.Enabled && cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required when the run log is enabled")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.PersistTimeout == 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	return nil
}

func (c AppConfig) runnerConfig() runner.Config {
	return runner.Config{
		Guard:            spec.Guard{Path: c.Sandbox.GuardPath, User: c.Sandbox.User},
		StdoutMaxBytes:   c.Sandbox.StdoutMaxBytes,
		AdmissionMode:    runner.AdmissionMode(c.Admission.Mode),
		AdmissionTimeout: c.Admission.Timeout,
	}
}

func (c AppConfig) sandboxConfig() sandbox.Config {
	return sandbox.Config{
		WorkRoot:       c.Sandbox.WorkRoot,
		KeepWorkDirs:   c.Sandbox.KeepWorkDirs,
		CompileTimeout: c.Sandbox.CompileTimeout,
	}
}
