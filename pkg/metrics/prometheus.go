package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	drawsTotal   prometheus.Counter
	maxRHat      prometheus.Gauge
	lastRunTime  prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brentshift_runs_total",
				Help: "Total number of analysis runs by terminal status",
			},
			[]string{"status"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brentshift_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		stageLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brentshift_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		drawsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "brentshift_posterior_draws_total",
				Help: "Total retained posterior draws across all runs",
			},
		),
		maxRHat: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "brentshift_max_rhat",
				Help: "Largest potential scale reduction statistic of the last run",
			},
		),
		lastRunTime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "brentshift_last_run_timestamp_seconds",
				Help: "Unix time of the last completed analysis run",
			},
		),
	}
}

// RecordRun records a finished analysis run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.lastRunTime.Set(float64(time.Now().Unix()))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordStageLatency records pipeline stage latency in seconds.
func (r *Recorder) RecordStageLatency(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordDraws adds retained draws of a finished sampling run.
func (r *Recorder) RecordDraws(n int) {
	r.drawsTotal.Add(float64(n))
}

// RecordMaxRHat records the worst convergence statistic of the last run.
func (r *Recorder) RecordMaxRHat(v float64) {
	r.maxRHat.Set(v)
}
