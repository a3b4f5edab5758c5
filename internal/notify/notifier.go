package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/kafka"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

const asyncSendTimeout = 5 * time.Second

// KafkaNotifier publishes notification events for the notifier daemon to
// deliver. Two tiers: Send is commit-critical and surfaces the enqueue
// error; SendAsync is best-effort and only logs failures, so a dead broker
// never rolls back an already committed transition.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, log: log}
}

func (n *KafkaNotifier) Send(ctx context.Context, notification *domain.Notification) error {
	return n.producer.Send(ctx, n.topic, notification.RecipientEmail, notification)
}

func (n *KafkaNotifier) SendAsync(ctx context.Context, notification *domain.Notification) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncSendTimeout)
		defer cancel()

		if err := n.producer.Send(sendCtx, n.topic, notification.RecipientEmail, notification); err != nil {
			n.log.Warn("failed to enqueue notification",
				zap.String("kind", string(notification.Kind)),
				zap.String("recipient", notification.RecipientEmail),
				zap.Error(err),
			)
		}
	}()
}
