// Package metrics defines the sync observability surface.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics impose zero overhead until a real implementation
// (PrometheusRecorder) is wired in by the daemon.
package metrics

import "time"

// OutcomeLabel is a normalized per-file outcome label.
type OutcomeLabel string

const (
	OutcomeUpdated     OutcomeLabel = "updated"
	OutcomeNotModified OutcomeLabel = "not_modified"
	OutcomeTimedOut    OutcomeLabel = "timed_out"
	OutcomeFailed      OutcomeLabel = "failed"
)

// Recorder captures sync pass metrics.
type Recorder interface {
	// ObservePassDuration records the wall time of one full sync pass.
	ObservePassDuration(d time.Duration)
	// IncFileOutcome counts one per-file outcome within a category.
	IncFileOutcome(category string, outcome OutcomeLabel)
	// IncPass counts a completed pass by result (clean/partial).
	IncPass(result string)
	// SetNextRun exposes the next scheduled run as a unix timestamp gauge.
	SetNextRun(t time.Time)
}

// NoopRecorder implements Recorder with no-ops.
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(time.Duration)   {}
func (NoopRecorder) IncFileOutcome(string, OutcomeLabel) {}
func (NoopRecorder) IncPass(string)                      {}
func (NoopRecorder) SetNextRun(time.Time)                {}
