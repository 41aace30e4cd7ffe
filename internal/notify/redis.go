package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher is the subset of the redis client used for fan-out.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Message is the JSON payload published for each notification.
type Message struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisSink publishes notifications to a channel so other processes
// (a UI, a bot) can show them.
type RedisSink struct {
	pub     Publisher
	channel string
	timeout time.Duration
}

func NewRedisSink(pub Publisher, channel string) *RedisSink {
	return &RedisSink{pub: pub, channel: channel, timeout: 2 * time.Second}
}

// Notify publishes asynchronously; failures are logged.
func (s *RedisSink) Notify(message string, severity Severity) {
	payload, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to encode notification", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
			slog.Warn("Failed to publish notification", "channel", s.channel, "error", err)
		}
	}()
}
