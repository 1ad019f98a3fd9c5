package rabbitmq

import "github.com/shopnest/user-service/internal/models"

// NotificationsExchange — exchange, в который сервис публикует письма.
const NotificationsExchange = "notifications"

// QueueConfig описывает очередь и ключ маршрутизации для нее.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди писем, которые обслуживает воркер.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.verification", RoutingKey: models.NotificationVerification},
		{QueueName: "notification.password-reset", RoutingKey: models.NotificationPasswordReset},
	}
}
