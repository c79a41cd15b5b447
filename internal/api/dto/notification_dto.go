package dto

import (
	"time"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID              string                  `json:"id"`
	Type            domain.NotificationType `json:"type"`
	Title           string                  `json:"title"`
	Message         string                  `json:"message"`
	RelatedUserID   *string                 `json:"related_user_id,omitempty"`
	RelatedTicketID *string                 `json:"related_ticket_id,omitempty"`
	IsRead          bool                    `json:"is_read"`
	CreatedAt       time.Time               `json:"created_at"`
}

// UnreadCountResponse is the badge payload.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
