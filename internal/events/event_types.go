package events

import (
	"time"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventMessageSent         EventType = "message_sent"
	EventMemberAdded         EventType = "member_added"
	EventUserReviewed        EventType = "user_reviewed"
)

// Event represents a domain event emitted by services. ActorID is the user
// whose request triggered it; the dispatcher excludes the actor from fan-out.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber int64                 `json:"ticket_number"`
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatorID    string                `json:"creator_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketNumber int64               `json:"ticket_number"`
	Title        string              `json:"title"`
	CreatorID    string              `json:"creator_id"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
}

// TicketDeletedPayload payload. MemberIDs and FilePaths are captured before
// the cascade removes the rows; FilePaths carries store-side object keys, not
// public URLs, so blob cleanup can address the objects directly.
type TicketDeletedPayload struct {
	TicketNumber int64    `json:"ticket_number"`
	Title        string   `json:"title"`
	MemberIDs    []string `json:"member_ids"`
	FilePaths    []string `json:"file_paths"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	MessageID   string             `json:"message_id"`
	MessageMode domain.MessageMode `json:"message_mode"`
	SenderRole  domain.UserRole    `json:"sender_role"`
	BodyPreview string             `json:"body_preview"`
}

// MemberAddedPayload payload.
type MemberAddedPayload struct {
	TicketNumber int64    `json:"ticket_number"`
	Title        string   `json:"title"`
	AddedUserIDs []string `json:"added_user_ids"`
}

// UserReviewedPayload payload for approval or rejection of an account.
type UserReviewedPayload struct {
	UserID   string                `json:"user_id"`
	Approved bool                  `json:"approved"`
	Status   domain.ApprovalStatus `json:"status"`
}
