package domain

import "time"

// NotificationType identifies the row's origin event on the wire.
type NotificationType string

const (
	NotificationChatMessage    NotificationType = "chat_message"
	NotificationStatusChange   NotificationType = "status_change"
	NotificationTicketCreated  NotificationType = "ticket_created"
	NotificationTicketAssigned NotificationType = "ticket_assigned"
	NotificationTicketDeleted  NotificationType = "ticket_deleted"
	NotificationUserRequest    NotificationType = "user_request"
	NotificationWhatsAppSent   NotificationType = "whatsapp_sent"
	NotificationWhatsAppFailed NotificationType = "whatsapp_failed"
)

// Notification is one row per (event, recipient). Only the dispatcher
// creates these.
type Notification struct {
	ID              string
	UserID          string
	Type            NotificationType
	Title           string
	Message         string
	RelatedUserID   *string
	RelatedTicketID *string
	IsRead          bool
	CreatedAt       time.Time
}

// NotificationCategory is the closed set of preference-gated event classes.
// Keeping this an enum (rather than string-keyed field lookup) makes the
// category-to-flag mapping exhaustive at compile time.
type NotificationCategory int

const (
	CategoryChatClients NotificationCategory = iota
	CategoryChatInternal
	CategoryStatusChange
	CategoryTicketCreation
	CategoryTicketAssigned
)

// NotificationPreference holds a user's per-category delivery flags.
// Absence of a row means all-enabled; DefaultPreference models that.
type NotificationPreference struct {
	UserID         string
	ChatClients    bool
	ChatInternal   bool
	StatusChange   bool
	TicketCreation bool
	TicketAssigned bool
	UpdatedAt      time.Time
}

// DefaultPreference is the implicit all-enabled row.
func DefaultPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:         userID,
		ChatClients:    true,
		ChatInternal:   true,
		StatusChange:   true,
		TicketCreation: true,
		TicketAssigned: true,
	}
}

// Allows resolves a category against the stored flags. Ticket assignment is
// never filterable: the added user must always learn about the membership.
func (p NotificationPreference) Allows(category NotificationCategory) bool {
	switch category {
	case CategoryChatClients:
		return p.ChatClients
	case CategoryChatInternal:
		return p.ChatInternal
	case CategoryStatusChange:
		return p.StatusChange
	case CategoryTicketCreation:
		return p.TicketCreation
	case CategoryTicketAssigned:
		return true
	}
	return true
}
