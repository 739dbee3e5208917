package mail

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/cache"
	"github.com/funlynk/funlynk/pkg/logging"
)

// QueueKey is the Redis list consumed by the external mail sender
const QueueKey = "mail:outbound"

// Message is a queued outbound email
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer queues outbound mail for asynchronous delivery
type Mailer interface {
	Enqueue(ctx context.Context, msg *Message) error
}

// QueueMailer pushes messages onto a Redis list. Delivery is handled by a
// separate sender process reading the other end.
type QueueMailer struct {
	cache  *cache.Cache
	logger *zap.Logger
}

// NewQueueMailer creates a mailer backed by the Redis queue
func NewQueueMailer(c *cache.Cache) *QueueMailer {
	return &QueueMailer{
		cache:  c,
		logger: logging.WithComponent("mail"),
	}
}

// Enqueue queues a message for delivery. With the cache disabled the
// message is dropped with a log line rather than failing the caller.
func (m *QueueMailer) Enqueue(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := m.cache.Push(QueueKey, string(data)); err != nil {
		if err == cache.ErrCacheDisabled {
			m.logger.Debug("Mail queue disabled, dropping message",
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject))
			return nil
		}
		return err
	}
	return nil
}
