package observer

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()

	rec.ObserveRun(ctx, "python3", "SUCCESS", 120*time.Millisecond, 9000)
	rec.ObserveRun(ctx, "python3", "SUCCESS", 80*time.Millisecond, 0)
	rec.ObserveRun(ctx, "c", "TIME_LIMIT", 5*time.Second, 1000)
	rec.ObserveCompile(ctx, "c", false, time.Second)
	rec.ObserveAdmission(ctx, "java", 0, false)

	if got := testutil.ToFloat64(rec.runs.WithLabelValues("python3", "SUCCESS")); got != 2 {
		t.Fatalf("expected 2 python3 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.runs.WithLabelValues("c", "TIME_LIMIT")); got != 1 {
		t.Fatalf("expected 1 time limit, got %v", got)
	}
	if got := testutil.ToFloat64(rec.compiles.WithLabelValues("c", "false")); got != 1 {
		t.Fatalf("expected 1 failed compile, got %v", got)
	}
	if got := testutil.ToFloat64(rec.rejections.WithLabelValues("java")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}

	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("double registration must fail")
	}
}

func TestRegisterGateGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	inUse := int64(3)
	if err := RegisterGateGauges(reg, 8, func() int64 { return inUse }); err != nil {
		t.Fatalf("register gauges: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range families {
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	if values["coderun_admission_tokens_in_use"] != 3 || values["coderun_admission_tokens_capacity"] != 8 {
		t.Fatalf("unexpected gauges %v", values)
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopMetricsRecorder); !ok {
		t.Fatalf("nil recorder should become noop")
	}
}
