package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coderun/internal/sandbox/runner"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := loadAppConfig(writeConfig(t, "logger:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr || cfg.Server.WriteTimeout != defaultWriteTimeout {
		t.Fatalf("server defaults not applied: %+v", cfg.Server)
	}
	if cfg.Sandbox.GuardPath != defaultGuardPath || cfg.Sandbox.User != defaultGuardUser {
		t.Fatalf("sandbox defaults not applied: %+v", cfg.Sandbox)
	}
	if cfg.Admission.Capacity != defaultAdmissionSlots || cfg.Admission.Mode != "wait" {
		t.Fatalf("admission defaults not applied: %+v", cfg.Admission)
	}
	if cfg.Limits.MaxSourceBytes != defaultMaxSourceBytes || cfg.Metrics.Path != "/metrics" {
		t.Fatalf("limit or metrics defaults not applied")
	}
	if cfg.Logger.Level != "debug" {
		t.Fatalf("logger section not parsed")
	}

	rc := cfg.runnerConfig()
	if rc.Guard.Path != defaultGuardPath || rc.AdmissionMode != runner.AdmissionWait || rc.StdoutMaxBytes != defaultStdoutMaxBytes {
		t.Fatalf("unexpected runner config %+v", rc)
	}
}

func TestLoadAppConfigSections(t *testing.T) {
	body := `
sandbox:
  guardPath: /opt/guard
  user: runner
  keepWorkDirs: true
admission:
  capacity: 8
  mode: reject
  timeout: 2s
languages:
  python3:
    runtime: "/opt/python/bin/python3 -BE"
redis:
  addr: "127.0.0.1:6379"
cache:
  enabled: true
kafka:
  brokers: ["k1:9092", "k2:9092"]
  compression: lz4
events:
  enabled: true
database:
  dsn: "u:p@tcp(db:3306)/coderun?parseTime=true"
runLog:
  enabled: true
`
	cfg, err := loadAppConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Sandbox.KeepWorkDirs || cfg.Admission.Mode != "reject" || cfg.Admission.Timeout != 2*time.Second {
		t.Fatalf("sections not parsed: %+v %+v", cfg.Sandbox, cfg.Admission)
	}
	if cfg.Languages["python3"].Runtime != "/opt/python/bin/python3 -BE" {
		t.Fatalf("language override not parsed: %+v", cfg.Languages)
	}
	if cfg.Cache.TTL != defaultCacheTTL || cfg.Cache.SuccessResults || cfg.Redis.PoolSize == 0 {
		t.Fatalf("cache defaults not applied: %+v %+v", cfg.Cache, cfg.Redis)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Events.Topic != defaultEventsTopic {
		t.Fatalf("kafka section not parsed: %+v %+v", cfg.Kafka, cfg.Events)
	}
	if !cfg.RunLog.Enabled || !strings.Contains(cfg.Database.DSN, "parseTime") {
		t.Fatalf("database section not parsed")
	}
	if sc := cfg.sandboxConfig(); !sc.KeepWorkDirs || sc.CompileTimeout != defaultCompileTimeout {
		t.Fatalf("unexpected sandbox config %+v", sc)
	}
}

func TestLoadAppConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "bad mode", body: "admission:\n  mode: drop\n", want: "admission mode"},
		{name: "cache without redis", body: "cache:\n  enabled: true\n", want: "redis addr"},
		{name: "events without brokers", body: "events:\n  enabled: true\n", want: "kafka brokers"},
		{name: "run log without dsn", body: "runLog:\n  enabled: true\n", want: "database dsn"},
		{name: "bad yaml", body: "server: [", want: "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadAppConfig(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if _, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := loadAppConfig(filepath.Join("..", "..", "configs", "coderun_service.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if !cfg.Cache.Enabled || cfg.Cache.SuccessResults || cfg.Admission.Capacity != 64 {
		t.Fatalf("unexpected shipped config %+v", cfg)
	}
}
