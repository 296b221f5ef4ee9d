package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/mirrord/internal/history"
	"git.home.luguber.info/inful/mirrord/internal/logfields"
	"git.home.luguber.info/inful/mirrord/internal/server/middleware"
	"git.home.luguber.info/inful/mirrord/internal/version"
)

// adminServer exposes health, status, and metrics for the daemon.
type adminServer struct {
	server *http.Server
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Uptime  string    `json:"uptime"`
	NextRun time.Time `json:"next_run"`
}

// statusResponse is the /status payload.
type statusResponse struct {
	NextRun      time.Time            `json:"next_run"`
	LastPass     *history.PassRecord  `json:"last_pass,omitempty"`
	RecentPasses []history.PassRecord `json:"recent_passes,omitempty"`
}

func newAdminServer(d *Daemon, listen string) (*adminServer, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealthz)
	mux.HandleFunc("/status", d.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	handler := middleware.Chain(slog.Default())(mux)
	server := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server error", logfields.Error(err))
		}
	}()

	slog.Info("Admin server listening", slog.String("addr", ln.Addr().String()))
	return &adminServer{server: server}, nil
}

func (s *adminServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (d *Daemon) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Version: version.Version,
		Uptime:  time.Since(d.startTime).Round(time.Second).String(),
		NextRun: d.scheduler.NextRun(time.Now()),
	})
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	last := d.lastSummary
	d.mu.RUnlock()

	resp := statusResponse{
		NextRun:  d.scheduler.NextRun(time.Now()),
		LastPass: last,
	}
	if d.store != nil {
		recent, err := d.store.RecentPasses(r.Context(), 20)
		if err != nil {
			slog.Error("Failed to load pass history", logfields.Error(err))
		} else {
			resp.RecentPasses = recent
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", logfields.Error(err))
	}
}
