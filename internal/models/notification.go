package models

// Виды писем, публикуемых в очередь уведомлений.
const (
	NotificationVerification  = "verification"
	NotificationPasswordReset = "password-reset"
)

// EmailNotification — сообщение для воркера отправки писем.
// Публикуется сервисом после сохранения токена, доставка идет отдельно.
type EmailNotification struct {
	Email string `json:"email"` // Адрес получателя
	Kind  string `json:"kind"`  // Вид письма: verification или password-reset
	Token string `json:"token"` // Одноразовый токен для ссылки в письме
}
