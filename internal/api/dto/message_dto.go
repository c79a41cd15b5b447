package dto

import (
	"time"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// SendMessageRequest payload.
type SendMessageRequest struct {
	Body             string             `json:"body"`
	MessageType      domain.MessageType `json:"message_type"`
	MessageMode      domain.MessageMode `json:"message_mode"`
	ReplyToMessageID *string            `json:"reply_to_message_id,omitempty"`
}

// EditMessageRequest payload.
type EditMessageRequest struct {
	Body string `json:"body"`
}

// ForwardMessageRequest payload.
type ForwardMessageRequest struct {
	TargetTicketID string             `json:"target_ticket_id"`
	MessageMode    domain.MessageMode `json:"message_mode"`
}

// SeenResponse records one read receipt.
type SeenResponse struct {
	UserID string    `json:"user_id"`
	SeenAt time.Time `json:"seen_at"`
}

// MessageResponse is the thread entry shape. Body carries the display
// variant, so deleted messages surface the placeholder, never the original
// text.
type MessageResponse struct {
	ID                     string             `json:"id"`
	TicketID               string             `json:"ticket_id"`
	SenderID               string             `json:"sender_id"`
	SenderName             string             `json:"sender_name,omitempty"`
	Body                   string             `json:"body"`
	MessageType            domain.MessageType `json:"message_type"`
	MessageMode            domain.MessageMode `json:"message_mode"`
	ReplyToMessageID       *string            `json:"reply_to_message_id,omitempty"`
	ForwardedFromMessageID *string            `json:"forwarded_from_message_id,omitempty"`
	ForwardedFromTicketID  *string            `json:"forwarded_from_ticket_id,omitempty"`
	IsEdited               bool               `json:"is_edited"`
	IsDeleted              bool               `json:"is_deleted"`
	SeenBy                 []SeenResponse     `json:"seen_by,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
}
