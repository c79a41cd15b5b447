package notify

import (
	"context"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/collabkit/ticketdesk/internal/config"
)

// EmailSender delivers mail through SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewEmailSender builds the sender. Without an SMTP host it degrades to a
// logging no-op, mirroring the WhatsApp sender.
func NewEmailSender(cfg config.NotifyConfig, logger *zap.Logger) *EmailSender {
	sender := &EmailSender{from: cfg.EmailFrom, logger: logger}
	if cfg.SMTPHost == "" {
		logger.Warn("smtp not configured; outbound email disabled")
		return sender
	}
	sender.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return sender
}

// Send delivers body to the email address in destination.
func (s *EmailSender) Send(_ context.Context, destination, subject, body string) error {
	if s.dialer == nil {
		s.logger.Debug("email send skipped", zap.String("destination", destination))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", destination)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return s.dialer.DialAndSend(msg)
}
