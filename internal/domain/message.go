package domain

import "time"

// MessageType differentiates text from file payloads.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeFile  MessageType = "FILE"
	MessageTypeImage MessageType = "IMAGE"
)

// MessageMode is a message's audience class.
type MessageMode string

const (
	// ModeInternal messages are staff-only.
	ModeInternal MessageMode = "INTERNAL"
	// ModeClient messages are visible to the ticket's client.
	ModeClient MessageMode = "CLIENT"
)

// DeletedPlaceholder is what renderers show instead of a soft-deleted body.
const DeletedPlaceholder = "This message was deleted"

// Message is one entry of a ticket thread. Deletion is soft: the row and its
// original body survive, DeletedAt/DeletedBy carry the removal.
type Message struct {
	ID                     string
	TicketID               string
	SenderID               string
	Body                   string
	MessageType            MessageType
	MessageMode            MessageMode
	ReplyToMessageID       *string
	ForwardedFromMessageID *string
	ForwardedFromTicketID  *string
	IsEdited               bool
	IsDeleted              bool
	DeletedAt              *time.Time
	DeletedBy              *string
	SeenBy                 []MessageSeen
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DisplayBody resolves the content variant: the stored body while active, the
// placeholder once deleted. The original body column is never overwritten.
func (m *Message) DisplayBody() string {
	if m.IsDeleted {
		return DeletedPlaceholder
	}
	return m.Body
}

// MessageSeen is a read receipt.
type MessageSeen struct {
	MessageID string
	UserID    string
	SeenAt    time.Time
}
