// Package result defines execution outcomes and classifies guard diagnostics.
package result

import (
	"strings"

	appErr "coderun/pkg/errors"
)

// Outcome is the classified result of one guarded execution.
// The zero value means the program was never executed.
type Outcome string

const (
	OutcomeSuccess             Outcome = "SUCCESS"
	OutcomeTimeLimit           Outcome = "TIME_LIMIT"
	OutcomeRuntimeError        Outcome = "RUNTIME_ERROR"
	OutcomeAbnormalTermination Outcome = "ABNORMAL_TERMINATION"
	OutcomeInternalError       Outcome = "INTERNAL_ERROR"
)

// Markers the guard writes to stderr when it intervenes.
const (
	TimeLimitMarker = "timelimit exceeded"
	SegfaultMarker  = "command terminated with signal 11"

	SignalKill     = 9
	SignalSegfault = 11
)

// Classification is the classifier verdict for one stderr capture.
type Classification struct {
	Outcome Outcome
	Signal  int
	Stderr  string
}

// Classify maps guard stderr onto an Outcome.
// Rules apply in order; any other nonempty stderr is an abnormal termination.
func Classify(stderr string) Classification {
	switch {
	case stderr == "":
		return Classification{Outcome: OutcomeSuccess}
	case strings.Contains(stderr, TimeLimitMarker):
		return Classification{Outcome: OutcomeTimeLimit, Signal: SignalKill}
	case strings.Contains(stderr, SegfaultMarker):
		return Classification{Outcome: OutcomeRuntimeError, Signal: SignalSegfault}
	default:
		return Classification{Outcome: OutcomeAbnormalTermination, Stderr: stderr}
	}
}

// Executed reports whether the outcome came from an execution attempt.
func (o Outcome) Executed() bool {
	return o != ""
}

// Code maps the outcome onto the error taxonomy.
func (o Outcome) Code() appErr.ErrorCode {
	switch o {
	case OutcomeSuccess:
		return appErr.Success
	case OutcomeTimeLimit:
		return appErr.TimeLimitExceeded
	case OutcomeRuntimeError:
		return appErr.RuntimeError
	case OutcomeAbnormalTermination:
		return appErr.AbnormalTermination
	default:
		return appErr.SandboxInternalError
	}
}

// Err returns nil for SUCCESS and a coded error otherwise.
func (o Outcome) Err() error {
	if o == OutcomeSuccess {
		return nil
	}
	return appErr.New(o.Code())
}
