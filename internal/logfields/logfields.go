package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCategory   = "category"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyStatus     = "http_status"
	KeyBytes      = "bytes"
	KeyOutcome    = "outcome"
	KeyPassID     = "pass_id"
	KeySchedule   = "schedule"
	KeyNextRun    = "next_run"
	KeyWait       = "wait"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Category(c string) slog.Attr      { return slog.String(KeyCategory, c) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func Bytes(n int64) slog.Attr          { return slog.Int64(KeyBytes, n) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func PassID(id string) slog.Attr       { return slog.String(KeyPassID, id) }
func Schedule(expr string) slog.Attr   { return slog.String(KeySchedule, expr) }
func NextRun(t string) slog.Attr       { return slog.String(KeyNextRun, t) }
func Wait(d string) slog.Attr          { return slog.String(KeyWait, d) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
