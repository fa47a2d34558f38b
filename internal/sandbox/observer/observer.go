// Package observer defines metrics hooks for sandbox execution.
package observer

import (
	"context"
	"time"
)

// MetricsRecorder records sandbox metrics.
type MetricsRecorder interface {
	ObserveCompile(ctx context.Context, languageID string, ok bool, elapsed time.Duration)
	ObserveRun(ctx context.Context, languageID string, outcome string, elapsed time.Duration, memoryKB int64)
	ObserveAdmission(ctx context.Context, languageID string, wait time.Duration, admitted bool)
}

// NoopMetricsRecorder ignores all metrics.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObserveCompile(ctx context.Context, languageID string, ok bool, elapsed time.Duration) {
}

func (NoopMetricsRecorder) ObserveRun(ctx context.Context, languageID string, outcome string, elapsed time.Duration, memoryKB int64) {
}

func (NoopMetricsRecorder) ObserveAdmission(ctx context.Context, languageID string, wait time.Duration, admitted bool) {
}

// OrNoop returns m, or a no-op recorder when m is nil.
func OrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return NoopMetricsRecorder{}
	}
	return m
}
