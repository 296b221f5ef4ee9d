// Package mirror walks the mirror specification and synchronizes every
// configured file once per pass.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/mirrord/internal/fetch"
	"git.home.luguber.info/inful/mirrord/internal/logfields"
	"git.home.luguber.info/inful/mirrord/internal/metrics"
)

// Spec maps category name -> local filename -> remote URL. It is owned by
// configuration and only read here.
type Spec map[string]map[string]string

// Summary aggregates per-file outcomes of one sync pass.
type Summary struct {
	Updated   int
	Unchanged int
	TimedOut  int
	Failed    int
	Duration  time.Duration
}

// Total returns the number of files attempted.
func (s Summary) Total() int { return s.Updated + s.Unchanged + s.TimedOut + s.Failed }

// Result labels the pass for metrics: clean when nothing failed.
func (s Summary) Result() string {
	if s.Failed > 0 {
		return "partial"
	}
	return "clean"
}

// Fetcher is the per-file download dependency.
type Fetcher interface {
	Fetch(ctx context.Context, localPath, url string) fetch.Outcome
}

// Engine runs sync passes. Files are processed strictly sequentially; a
// failure never aborts the pass, every remaining file is still attempted.
type Engine struct {
	basePath string
	fetcher  Fetcher
	recorder metrics.Recorder
}

// NewEngine creates an engine writing below basePath. Metrics default to noop.
func NewEngine(basePath string, fetcher Fetcher) *Engine {
	return &Engine{
		basePath: basePath,
		fetcher:  fetcher,
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder swaps in a real metrics recorder.
func (e *Engine) WithRecorder(r metrics.Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// RunAll performs one full sync pass over spec. It only stops early when ctx
// is cancelled; every other failure is contained to its file.
func (e *Engine) RunAll(ctx context.Context, spec Spec) Summary {
	start := time.Now()
	var summary Summary

	for _, category := range sortedKeys(spec) {
		if ctx.Err() != nil {
			break
		}
		files := spec[category]
		dir := filepath.Join(e.basePath, category)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			// Every file in the category would fail the same way; count
			// them and move on to the next category.
			slog.Error("Failed to create category directory",
				logfields.Category(category),
				logfields.Path(dir),
				logfields.Error(err))
			summary.Failed += len(files)
			for range files {
				e.recorder.IncFileOutcome(category, metrics.OutcomeFailed)
			}
			continue
		}

		for _, name := range sortedKeys(files) {
			if ctx.Err() != nil {
				break
			}
			e.syncFile(ctx, category, name, files[name], filepath.Join(dir, name), &summary)
		}
	}

	summary.Duration = time.Since(start)
	e.recorder.ObservePassDuration(summary.Duration)
	e.recorder.IncPass(summary.Result())
	slog.Info("Sync pass complete",
		slog.Int("updated", summary.Updated),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("timed_out", summary.TimedOut),
		slog.Int("failed", summary.Failed),
		logfields.DurationMS(float64(summary.Duration.Milliseconds())))
	return summary
}

func (e *Engine) syncFile(ctx context.Context, category, name, url, localPath string, summary *Summary) {
	out := e.fetcher.Fetch(ctx, localPath, url)
	switch out.Status {
	case fetch.StatusUpdated:
		summary.Updated++
		e.recorder.IncFileOutcome(category, metrics.OutcomeUpdated)
		slog.Info("File updated",
			logfields.Category(category),
			logfields.File(name),
			logfields.URL(url),
			logfields.Bytes(out.Bytes))
	case fetch.StatusNotModified:
		summary.Unchanged++
		e.recorder.IncFileOutcome(category, metrics.OutcomeNotModified)
		slog.Debug("File unchanged",
			logfields.Category(category),
			logfields.File(name),
			logfields.URL(url))
	case fetch.StatusTimedOut:
		// Benign for slow or unreachable sources; retried next cycle.
		summary.TimedOut++
		e.recorder.IncFileOutcome(category, metrics.OutcomeTimedOut)
		slog.Warn("Fetch timed out",
			logfields.Category(category),
			logfields.File(name),
			logfields.URL(url),
			logfields.Error(out.Err))
	default:
		summary.Failed++
		e.recorder.IncFileOutcome(category, metrics.OutcomeFailed)
		slog.Error("Failed to sync file",
			logfields.Category(category),
			logfields.File(name),
			logfields.URL(url),
			logfields.Status(out.HTTPStatus),
			logfields.Error(out.Err))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks a spec for empty categories and blank URLs so obvious
// configuration mistakes surface at startup rather than mid-pass.
func (s Spec) Validate() error {
	for category, files := range s {
		if category == "" {
			return fmt.Errorf("mirror spec contains an empty category name")
		}
		if len(files) == 0 {
			return fmt.Errorf("category %q has no files", category)
		}
		for name, url := range files {
			if name == "" {
				return fmt.Errorf("category %q contains an empty filename", category)
			}
			if url == "" {
				return fmt.Errorf("file %s/%s has an empty URL", category, name)
			}
		}
	}
	return nil
}
