// Package sender формирует и отправляет письма подтверждения email
// и сброса пароля по сообщениям из очередей уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopnest/user-service/internal/lib/sl"
	"github.com/shopnest/user-service/internal/lib/smtp"
	"github.com/shopnest/user-service/internal/models"
)

// SenderService отправляет письма через SMTP транспорт.
type SenderService struct {
	transport     smtp.TransportInterface
	publicBaseURL string
	log           *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
// publicBaseURL — внешний адрес фронтенда, из него строятся ссылки в письмах.
func NewSenderService(transport smtp.TransportInterface, publicBaseURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport:     transport,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
}

// SendVerificationEmail отправляет письмо со ссылкой подтверждения email.
func (s *SenderService) SendVerificationEmail(body []byte) error {
	var message models.EmailNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Подтверждение адреса электронной почты"
	link := fmt.Sprintf("%s/verify-email?token=%s", s.publicBaseURL, message.Token)
	bodyText := fmt.Sprintf("Здравствуйте!\n\nЧтобы подтвердить адрес электронной почты, перейдите по ссылке: %s\n\nЕсли вы не регистрировались, просто проигнорируйте это письмо.", link)

	return s.sendEmail(to, subject, bodyText)
}

// SendPasswordResetEmail отправляет письмо со ссылкой сброса пароля.
func (s *SenderService) SendPasswordResetEmail(body []byte) error {
	var message models.EmailNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Сброс пароля"
	link := fmt.Sprintf("%s/reset-password?token=%s", s.publicBaseURL, message.Token)
	bodyText := fmt.Sprintf("Здравствуйте!\n\nМы получили запрос на сброс пароля. Ссылка действует один час: %s\n\nЕсли вы не запрашивали сброс, просто проигнорируйте это письмо.", link)

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
