package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/config"
)

// WhatsAppSender posts messages to a WhatsApp gateway over REST.
type WhatsAppSender struct {
	client *resty.Client
	logger *zap.Logger
}

// NewWhatsAppSender builds the sender. With no gateway configured it degrades
// to a logging no-op so environments without the channel still boot.
func NewWhatsAppSender(cfg config.NotifyConfig, logger *zap.Logger) *WhatsAppSender {
	if cfg.WhatsAppGatewayURL == "" {
		logger.Warn("whatsapp gateway not configured; outbound chat messages disabled")
		return &WhatsAppSender{logger: logger}
	}

	client := resty.New().
		SetBaseURL(cfg.WhatsAppGatewayURL).
		SetTimeout(10 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.WhatsAppToken)

	return &WhatsAppSender{client: client, logger: logger}
}

type whatsAppMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send delivers body to the phone number in destination. Subject is folded
// into the message text since the channel has no subject concept.
func (s *WhatsAppSender) Send(ctx context.Context, destination, subject, body string) error {
	if s.client == nil {
		s.logger.Debug("whatsapp send skipped", zap.String("destination", destination))
		return nil
	}

	text := body
	if subject != "" {
		text = subject + "\n" + body
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(whatsAppMessage{Phone: destination, Message: text}).
		Post("/messages")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp gateway returned %s", resp.Status())
	}
	return nil
}
