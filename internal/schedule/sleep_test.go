package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestWaitUntil(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("past deadline is a no-op", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(start)
		err := WaitUntil(context.Background(), clock, start.Add(-time.Hour))
		require.NoError(t, err)
	})

	t.Run("long wait decomposes into chunks", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(start)
		until := start.Add(3*time.Hour + 30*time.Minute)

		done := make(chan error, 1)
		go func() {
			done <- WaitUntil(context.Background(), clock, until)
		}()

		// Three full chunks plus the 30m remainder.
		for i := 0; i < 3; i++ {
			clock.BlockUntil(1)
			clock.Advance(maxSleepChunk)
		}
		clock.BlockUntil(1)
		clock.Advance(30 * time.Minute)

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("wait never completed")
		}
		require.Equal(t, until, clock.Now())
	})

	t.Run("cancellation unblocks mid-chunk", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(start)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- WaitUntil(ctx, clock, start.Add(48*time.Hour))
		}()

		clock.BlockUntil(1)
		cancel()

		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("wait did not observe cancellation")
		}
	})

	t.Run("short wait completes in one chunk", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(start)
		until := start.Add(10 * time.Second)

		done := make(chan error, 1)
		go func() {
			done <- WaitUntil(context.Background(), clock, until)
		}()

		clock.BlockUntil(1)
		clock.Advance(10 * time.Second)
		require.NoError(t, <-done)
	})
}
