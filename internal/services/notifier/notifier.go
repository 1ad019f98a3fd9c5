// Package notifier публикует email-уведомления в RabbitMQ.
// Письма отправляет отдельный воркер, читающий очереди уведомлений.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/shopnest/user-service/internal/models"
	"github.com/shopnest/user-service/internal/rabbitmq"
)

// RabbitNotifier публикует уведомления в exchange уведомлений.
// Ключом маршрутизации служит тип уведомления.
type RabbitNotifier struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает новый экземпляр RabbitNotifier.
func New(ch *amqp.Channel, log *slog.Logger) *RabbitNotifier {
	return &RabbitNotifier{ch: ch, log: log}
}

// Notify публикует уведомление в очередь соответствующего типа.
func (n *RabbitNotifier) Notify(_ context.Context, notification models.EmailNotification) error {
	const op = "notifier.Notify"

	err := rabbitmq.PublishMessage(n.ch, rabbitmq.NotificationsExchange, notification.Kind, notification)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.log.Info("notification published",
		slog.String("kind", notification.Kind),
		slog.String("email", notification.Email))
	return nil
}
