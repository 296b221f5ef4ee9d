// Package fetch performs conditional HTTP downloads for single mirror entries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// Status classifies the result of one fetch attempt.
type Status string

const (
	// StatusUpdated means the remote content changed and was written locally.
	StatusUpdated Status = "updated"
	// StatusNotModified means the server answered 304 for our precondition.
	StatusNotModified Status = "not_modified"
	// StatusTimedOut means the request exceeded the per-fetch deadline.
	// Expected for slow or unreachable sources; benign.
	StatusTimedOut Status = "timed_out"
	// StatusFailed covers non-success responses, transport and write errors.
	StatusFailed Status = "failed"
)

// Outcome is the per-file result of a fetch attempt.
type Outcome struct {
	Status     Status
	Bytes      int64 // bytes written for StatusUpdated
	HTTPStatus int   // response status code when a response was received
	Err        error // cause for StatusFailed / StatusTimedOut
}

// DefaultTimeout bounds a single fetch attempt.
const DefaultTimeout = 5 * time.Second

// Fetcher issues conditional GETs. The underlying http.Client is created once
// and reused for every request so connections are pooled across files and
// passes.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher creates a fetcher with the given per-request timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Fetch downloads url into localPath using a conditional GET. If localPath
// exists its last-write time is sent as If-Modified-Since, letting the server
// answer 304 instead of resending unchanged content.
//
// Fetch never returns an error: every failure mode is folded into the
// Outcome so callers can treat files independently.
func (f *Fetcher) Fetch(ctx context.Context, localPath, url string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("build request: %w", err)}
	}
	if info, err := os.Stat(localPath); err == nil {
		req.Header.Set("If-Modified-Since", info.ModTime().UTC().Format(http.TimeFormat))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Outcome{Status: StatusTimedOut, Err: err}
		}
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("request %s: %w", url, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Outcome{Status: StatusNotModified, HTTPStatus: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Outcome{
			Status:     StatusFailed,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s for %s", resp.Status, url),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return Outcome{Status: StatusTimedOut, HTTPStatus: resp.StatusCode, Err: err}
		}
		return Outcome{Status: StatusFailed, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	// Full-file rewrite; a rare torn write is re-fetched on the next cycle.
	if err := os.WriteFile(localPath, body, 0o644); err != nil {
		return Outcome{Status: StatusFailed, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("write %s: %w", localPath, err)}
	}

	return Outcome{Status: StatusUpdated, Bytes: int64(len(body)), HTTPStatus: resp.StatusCode}
}

// isTimeout reports whether err is a deadline/timeout condition rather than a
// hard transport failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
