// Package models содержит доменную модель пользователя сервиса,
// включающую учётные данные, статус подтверждения почты и одноразовые
// токены для подтверждения email и сброса пароля.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Роли, используемые сервисом.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет учётную запись пользователя сервиса.
type User struct {
	UID                    string     `json:"uid"`                           // Уникальный идентификатор, присваивается хранилищем
	Email                  string     `json:"email"`                         // Электронная почта (уникальная)
	PasswordHash           string     `json:"-"`                             // Хэш пароля, никогда не отдается наружу
	Role                   string     `json:"role"`                          // Роль пользователя, admin или user
	Verified               bool       `json:"verified"`                      // Подтверждена ли электронная почта
	EmailVerificationToken *string    `json:"-"`                             // Одноразовый токен подтверждения почты
	PasswordResetToken     *string    `json:"-"`                             // Одноразовый токен сброса пароля
	PasswordResetExpiresAt *time.Time `json:"-"`                             // Срок действия токена сброса, всегда вместе с токеном
	ProfilePictureURL      *string    `json:"profile_picture_url,omitempty"` // Ссылка на аватар
	CreatedAt              time.Time  `json:"created_at"`                    // Дата создания учётной записи
}
