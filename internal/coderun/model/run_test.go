package model

import (
	"testing"
	"time"

	"coderun/internal/sandbox/result"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
	appErr "coderun/pkg/errors"
)

func TestNewRunResult(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cases := []struct {
		name          string
		setup         func(tk *task.Task)
		wantCode      appErr.ErrorCode
		deterministic bool
	}{
		{
			name: "success",
			setup: func(tk *task.Task) {
				tk.SetExecutable("prog")
				tk.BeginAttempt()
				tk.Record(result.Classify(""))
				tk.Stdout = "121\n"
				tk.Elapsed = 1500 * time.Millisecond
			},
			wantCode:      appErr.Success,
			deterministic: false,
		},
		{
			name:          "compile failure",
			setup:         func(tk *task.Task) { tk.FailCompile("syntax error", 1) },
			wantCode:      appErr.CompilationError,
			deterministic: true,
		},
		{
			name: "time limit",
			setup: func(tk *task.Task) {
				tk.SetExecutable("prog")
				tk.BeginAttempt()
				tk.Record(result.Classify("runguard: warning: timelimit exceeded"))
			},
			wantCode: appErr.TimeLimitExceeded,
		},
		{
			name: "internal error",
			setup: func(tk *task.Task) {
				tk.BeginAttempt()
				tk.Fail(nil)
			},
			wantCode: appErr.SandboxInternalError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := task.New("python3", t.TempDir(), "prog", spec.ResourceLimits{})
			tc.setup(tk)
			got := NewRunResult("run-1", tk, now)
			if got.Code != tc.wantCode {
				t.Fatalf("expected code %d, got %d", tc.wantCode, got.Code)
			}
			if got.Deterministic() != tc.deterministic {
				t.Fatalf("expected deterministic=%v", tc.deterministic)
			}
			if got.RunID != "run-1" || got.LanguageID != "python3" || got.CreatedAt != now.Unix() {
				t.Fatalf("unexpected identity fields %+v", got)
			}
			if got.Outcome != string(tk.Outcome) || got.TimeMs != tk.Elapsed.Milliseconds() {
				t.Fatalf("task fields not copied %+v", got)
			}
		})
	}
}
