package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/mirrord/internal/logfields"
)

const (
	// fallbackInterval keeps the loop alive when no rule yields a future
	// occurrence (degenerate but valid rule sets).
	fallbackInterval = 12 * time.Hour

	// minAdvance is how far forward a stale run time (clock skew, DST
	// transitions) is pushed. Clamping forward prevents a busy-loop.
	minAdvance = time.Minute
)

// Scheduler drives the periodic sync loop: compute the earliest next
// occurrence across all rules, wait, run one pass, repeat.
type Scheduler struct {
	mu          sync.RWMutex
	rules       []Rule
	clock       clockwork.Clock
	nextRunHook func(time.Time)
}

// NewScheduler creates a scheduler over the given rules using the real clock.
func NewScheduler(rules []Rule) *Scheduler {
	return &Scheduler{rules: rules, clock: clockwork.NewRealClock()}
}

// NewSchedulerWithClock is NewScheduler with an injectable clock for tests.
func NewSchedulerWithClock(rules []Rule, clock clockwork.Clock) *Scheduler {
	return &Scheduler{rules: rules, clock: clock}
}

// SetRules replaces the rule set. The scheduler holds no other schedule
// state, so a swap takes effect on the next loop iteration.
func (s *Scheduler) SetRules(rules []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// SetNextRunHook injects an observer called with each computed run time.
func (s *Scheduler) SetNextRunHook(hook func(time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRunHook = hook
}

// NextRun returns the earliest next occurrence across all rules strictly
// after now. A candidate in the past is clamped forward to now + minAdvance.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	s.mu.RLock()
	rules := s.rules
	s.mu.RUnlock()

	var next time.Time
	for _, r := range rules {
		candidate := r.Next(now)
		if candidate.IsZero() {
			// Exhausted or degenerate rule; not an error, just no vote.
			continue
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	if next.IsZero() {
		next = now.Add(fallbackInterval)
	}
	// Only genuinely stale candidates get clamped; a valid run time less
	// than a minute away must stay on its boundary.
	if next.Before(now) {
		next = now.Add(minAdvance)
	}
	return next
}

// Run executes the scheduling loop until ctx is cancelled. Each tick is
// synchronous: a pass always completes before the next run time is computed,
// so passes never overlap and a long pass simply delays the next wait.
func (s *Scheduler) Run(ctx context.Context, onTick func(context.Context)) error {
	for {
		now := s.clock.Now()
		next := s.NextRun(now)

		s.mu.RLock()
		hook := s.nextRunHook
		s.mu.RUnlock()
		if hook != nil {
			hook(next)
		}

		slog.Debug("Computed next sync run",
			logfields.NextRun(next.Format(time.RFC3339)),
			logfields.Wait(next.Sub(now).String()))

		if err := WaitUntil(ctx, s.clock, next); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onTick(ctx)
	}
}
