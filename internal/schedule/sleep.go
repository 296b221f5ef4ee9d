package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/mirrord/internal/logfields"
)

// maxSleepChunk bounds a single timer wait. Long waits are decomposed into
// chunks so the wall clock is re-sampled periodically; this keeps the wake
// time honest across host suspend/resume and timer caps.
const maxSleepChunk = time.Hour

// WaitUntil sleeps until the deadline or until ctx is cancelled, whichever
// comes first. It returns ctx.Err() on cancellation and nil otherwise.
// A deadline already in the past is a no-op.
//
// Waits longer than a minute are logged once up front (rounded up to the
// minute) instead of once per chunk, so a multi-day wait does not spam logs.
func WaitUntil(ctx context.Context, clock clockwork.Clock, until time.Time) error {
	remaining := until.Sub(clock.Now())
	if remaining <= 0 {
		return ctx.Err()
	}

	if remaining > time.Minute {
		rounded := remaining.Truncate(time.Minute)
		if rounded < remaining {
			rounded += time.Minute
		}
		slog.Info("Waiting until next run",
			logfields.NextRun(until.Format(time.RFC3339)),
			logfields.Wait(rounded.String()))
	}

	for {
		remaining = until.Sub(clock.Now())
		if remaining <= 0 {
			return nil
		}
		chunk := remaining
		if chunk > maxSleepChunk {
			chunk = maxSleepChunk
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(chunk):
		}
	}
}
