package services

import "errors"

// Типизированные ошибки жизненного цикла учётных данных.
// Вызывающий код различает их через errors.Is, а не по тексту.
var (
	// ErrInvalidCredentials возвращается при входе с неизвестным email или
	// неверным паролем. Оба случая намеренно неразличимы для вызывающего.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken возвращается, когда токен подтверждения или сброса
	// не найден либо уже погашен.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired возвращается, когда токен сброса найден, но срок его
	// действия истек.
	ErrTokenExpired = errors.New("token expired")
)
