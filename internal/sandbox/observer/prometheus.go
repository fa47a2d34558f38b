package observer

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "coderun"

// PrometheusRecorder exports sandbox metrics to Prometheus.
type PrometheusRecorder struct {
	compiles      *prometheus.CounterVec
	compileTime   *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	runTime       *prometheus.HistogramVec
	runMemory     *prometheus.HistogramVec
	admissionWait *prometheus.HistogramVec
	rejections    *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "compiles_total",
			Help:      "Total number of compile steps",
		}, []string{"language", "ok"}),
		compileTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "compile_duration_seconds",
			Help:      "Compile step duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"language"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Total number of guarded executions by outcome",
		}, []string{"language", "outcome"}),
		runTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Guarded execution wall time",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"language"}),
		runMemory: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_memory_kb",
			Help:      "Peak resident memory per execution in KB",
			Buckets:   []float64{1024, 4096, 16384, 65536, 131072, 262144, 1048576},
		}, []string{"language"}),
		admissionWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "admission_wait_seconds",
			Help:      "Time spent waiting for execution capacity",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"language"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "admission_rejections_total",
			Help:      "Executions refused for lack of capacity",
		}, []string{"language"}),
	}
	for _, c := range []prometheus.Collector{
		r.compiles, r.compileTime, r.runs, r.runTime, r.runMemory, r.admissionWait, r.rejections,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterGateGauges exports the admission gate occupancy.
func RegisterGateGauges(reg prometheus.Registerer, capacity int64, inUse func() int64) error {
	if err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "admission_tokens_in_use",
		Help:      "Admission tokens currently held by running executions",
	}, func() float64 { return float64(inUse()) })); err != nil {
		return err
	}
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "admission_tokens_capacity",
		Help:      "Admission gate capacity",
	}, func() float64 { return float64(capacity) }))
}

func (r *PrometheusRecorder) ObserveCompile(ctx context.Context, languageID string, ok bool, elapsed time.Duration) {
	r.compiles.WithLabelValues(languageID, strconv.FormatBool(ok)).Inc()
	r.compileTime.WithLabelValues(languageID).Observe(elapsed.Seconds())
}

func (r *PrometheusRecorder) ObserveRun(ctx context.Context, languageID string, outcome string, elapsed time.Duration, memoryKB int64) {
	r.runs.WithLabelValues(languageID, outcome).Inc()
	r.runTime.WithLabelValues(languageID).Observe(elapsed.Seconds())
	if memoryKB > 0 {
		r.runMemory.WithLabelValues(languageID).Observe(float64(memoryKB))
	}
}

func (r *PrometheusRecorder) ObserveAdmission(ctx context.Context, languageID string, wait time.Duration, admitted bool) {
	if !admitted {
		r.rejections.WithLabelValues(languageID).Inc()
		return
	}
	r.admissionWait.WithLabelValues(languageID).Observe(wait.Seconds())
}
