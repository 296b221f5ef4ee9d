// Package events publishes sync pass lifecycle events to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// PassCompleted is the payload published after every sync pass.
type PassCompleted struct {
	PassID     string    `json:"pass_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	TimedOut   int       `json:"timed_out"`
	Failed     int       `json:"failed"`
}

// Publisher emits pass events. Implementations must be safe for sequential
// reuse from the sync loop.
type Publisher interface {
	PublishPassCompleted(event PassCompleted) error
	Close()
}

// NoopPublisher is the default when events are not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishPassCompleted(PassCompleted) error { return nil }
func (NoopPublisher) Close()                                   {}

// NATSPublisher publishes pass events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS and returns a publisher for subject.
func NewNATSPublisher(natsURL, subject string) (*NATSPublisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", natsURL, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// PublishPassCompleted emits one pass-completed event. Publish failures are
// the caller's to log; they never affect sync behavior.
func (p *NATSPublisher) PublishPassCompleted(event PassCompleted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pass event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish pass event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
