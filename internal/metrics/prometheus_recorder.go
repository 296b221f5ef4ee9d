package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	passDuration prom.Histogram
	fileOutcomes *prom.CounterVec
	passes       *prom.CounterVec
	nextRun      prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.passDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mirrord",
			Name:      "pass_duration_seconds",
			Help:      "Duration of full sync passes",
			Buckets:   prom.DefBuckets,
		})
		pr.fileOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mirrord",
			Name:      "file_outcomes_total",
			Help:      "Per-file sync outcomes by category",
		}, []string{"category", "outcome"})
		pr.passes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mirrord",
			Name:      "passes_total",
			Help:      "Completed sync passes by result",
		}, []string{"result"})
		pr.nextRun = prom.NewGauge(prom.GaugeOpts{
			Namespace: "mirrord",
			Name:      "next_run_timestamp_seconds",
			Help:      "Unix timestamp of the next scheduled sync run",
		})
		reg.MustRegister(pr.passDuration, pr.fileOutcomes, pr.passes, pr.nextRun)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	if p == nil || p.passDuration == nil {
		return
	}
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFileOutcome(category string, outcome OutcomeLabel) {
	if p == nil || p.fileOutcomes == nil {
		return
	}
	p.fileOutcomes.WithLabelValues(category, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncPass(result string) {
	if p == nil || p.passes == nil {
		return
	}
	p.passes.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetNextRun(t time.Time) {
	if p == nil || p.nextRun == nil {
		return
	}
	p.nextRun.Set(float64(t.Unix()))
}
