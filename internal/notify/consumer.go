package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

// Deliverer sends one rendered message to one recipient.
type Deliverer interface {
	Deliver(to, subject, body string) error
}

// Consumer drains the notification topic and hands each event to the
// mailer. Malformed events are committed and skipped; delivery failures
// are logged but also committed, since retrying a dead address forever
// would wedge the partition.
type Consumer struct {
	reader  *kafka.Reader
	mailer  Deliverer
	log     *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, mailer Deliverer, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: reader, mailer: mailer, log: log}
}

func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer shutting down")
				return nil
			}
			c.log.Error("failed to fetch message", zap.Error(err))
			continue
		}

		var notification domain.Notification
		if err := json.Unmarshal(msg.Value, &notification); err != nil {
			c.log.Warn("skipping malformed notification",
				zap.ByteString("value", msg.Value),
				zap.Error(err),
			)
		} else {
			subject, body := RenderEmail(&notification)
			if err := c.mailer.Deliver(notification.RecipientEmail, subject, body); err != nil {
				c.log.Error("failed to deliver notification",
					zap.String("kind", string(notification.Kind)),
					zap.String("recipient", notification.RecipientEmail),
					zap.Error(err),
				)
			} else {
				c.log.Info("notification delivered",
					zap.String("kind", string(notification.Kind)),
					zap.String("recipient", notification.RecipientEmail),
				)
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("failed to commit message", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
