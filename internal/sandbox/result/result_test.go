package result

import (
	"testing"

	appErr "coderun/pkg/errors"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		stderr     string
		wantOut    Outcome
		wantSignal int
		wantStderr string
	}{
		{name: "empty stderr", stderr: "", wantOut: OutcomeSuccess},
		{
			name:       "time limit",
			stderr:     "runguard: warning: timelimit exceeded (wall time): aborting command\n",
			wantOut:    OutcomeTimeLimit,
			wantSignal: 9,
		},
		{
			name:       "segfault",
			stderr:     "runguard: warning: command terminated with signal 11\n",
			wantOut:    OutcomeRuntimeError,
			wantSignal: 11,
		},
		{
			name:       "time limit wins over segfault",
			stderr:     "warning: command terminated with signal 11\nwarning: timelimit exceeded\n",
			wantOut:    OutcomeTimeLimit,
			wantSignal: 9,
		},
		{
			name:       "python traceback",
			stderr:     "Traceback (most recent call last):\nZeroDivisionError: division by zero\n",
			wantOut:    OutcomeAbnormalTermination,
			wantStderr: "Traceback (most recent call last):\nZeroDivisionError: division by zero\n",
		},
		{
			name:       "other signal",
			stderr:     "runguard: warning: command terminated with signal 6\n",
			wantOut:    OutcomeAbnormalTermination,
			wantStderr: "runguard: warning: command terminated with signal 6\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.stderr)
			if got.Outcome != tc.wantOut {
				t.Fatalf("outcome = %s, want %s", got.Outcome, tc.wantOut)
			}
			if got.Signal != tc.wantSignal {
				t.Fatalf("signal = %d, want %d", got.Signal, tc.wantSignal)
			}
			if got.Stderr != tc.wantStderr {
				t.Fatalf("stderr = %q, want %q", got.Stderr, tc.wantStderr)
			}
		})
	}
}

func TestOutcomeErr(t *testing.T) {
	cases := []struct {
		outcome Outcome
		code    appErr.ErrorCode
	}{
		{OutcomeTimeLimit, appErr.TimeLimitExceeded},
		{OutcomeRuntimeError, appErr.RuntimeError},
		{OutcomeAbnormalTermination, appErr.AbnormalTermination},
		{OutcomeInternalError, appErr.SandboxInternalError},
	}
	if OutcomeSuccess.Err() != nil {
		t.Fatalf("success must map to nil error")
	}
	for _, tc := range cases {
		if got := appErr.GetCode(tc.outcome.Err()); got != tc.code {
			t.Fatalf("%s: code = %d, want %d", tc.outcome, got, tc.code)
		}
	}
	if Outcome("").Executed() {
		t.Fatalf("zero outcome must not count as executed")
	}
}
