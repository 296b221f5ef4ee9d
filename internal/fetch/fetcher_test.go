package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	t.Run("downloads new file", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Empty(t, r.Header.Get("If-Modified-Since"))
			_, _ = w.Write([]byte("logo-bytes"))
		}))
		defer srv.Close()

		local := filepath.Join(t.TempDir(), "logo.png")
		out := NewFetcher(0).Fetch(context.Background(), local, srv.URL)

		require.Equal(t, StatusUpdated, out.Status)
		require.Equal(t, int64(len("logo-bytes")), out.Bytes)

		data, err := os.ReadFile(local)
		require.NoError(t, err)
		require.Equal(t, "logo-bytes", string(data))
	})

	t.Run("sends precondition and honors 304", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("If-Modified-Since") != "" {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			_, _ = w.Write([]byte("v1"))
		}))
		defer srv.Close()

		local := filepath.Join(t.TempDir(), "data.json")
		f := NewFetcher(0)

		first := f.Fetch(context.Background(), local, srv.URL)
		require.Equal(t, StatusUpdated, first.Status)

		info, err := os.Stat(local)
		require.NoError(t, err)
		before := info.ModTime()

		second := f.Fetch(context.Background(), local, srv.URL)
		require.Equal(t, StatusNotModified, second.Status)

		// 304 must not touch the file.
		info, err = os.Stat(local)
		require.NoError(t, err)
		require.Equal(t, before, info.ModTime())

		data, err := os.ReadFile(local)
		require.NoError(t, err)
		require.Equal(t, "v1", string(data))
	})

	t.Run("server error yields failed with status detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		local := filepath.Join(t.TempDir(), "x")
		out := NewFetcher(0).Fetch(context.Background(), local, srv.URL)

		require.Equal(t, StatusFailed, out.Status)
		require.Equal(t, http.StatusInternalServerError, out.HTTPStatus)
		require.Error(t, out.Err)
		require.NoFileExists(t, local)
	})

	t.Run("connection refused yields failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close() // nothing listens anymore

		out := NewFetcher(0).Fetch(context.Background(), filepath.Join(t.TempDir(), "x"), url)
		require.Equal(t, StatusFailed, out.Status)
		require.Error(t, out.Err)
	})

	t.Run("slow server yields timed out", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			srv.Close()
		}()

		out := NewFetcher(50 * time.Millisecond).Fetch(context.Background(), filepath.Join(t.TempDir(), "x"), srv.URL)
		require.Equal(t, StatusTimedOut, out.Status)
		require.Error(t, out.Err)
	})

	t.Run("unwritable destination yields failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("content"))
		}))
		defer srv.Close()

		// Destination directory does not exist.
		local := filepath.Join(t.TempDir(), "missing", "x")
		out := NewFetcher(0).Fetch(context.Background(), local, srv.URL)
		require.Equal(t, StatusFailed, out.Status)
		require.Error(t, out.Err)
	})
}
