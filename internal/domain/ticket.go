package domain

import "time"

// TicketStatus is a free-form lifecycle field: any authorized actor may set
// any valid value, there is no transition adjacency.
type TicketStatus string

const (
	TicketStatusCreated             TicketStatus = "CREATED"
	TicketStatusAssigned            TicketStatus = "ASSIGNED"
	TicketStatusOngoing             TicketStatus = "ONGOING"
	TicketStatusPendingWithReviewer TicketStatus = "PENDING_WITH_REVIEWER"
	TicketStatusPendingWithClient   TicketStatus = "PENDING_WITH_CLIENT"
	TicketStatusCompleted           TicketStatus = "COMPLETED"
	TicketStatusClosed              TicketStatus = "CLOSED"
)

// ValidStatus reports whether s is one of the known lifecycle values.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusCreated, TicketStatusAssigned, TicketStatusOngoing,
		TicketStatusPendingWithReviewer, TicketStatusPendingWithClient,
		TicketStatusCompleted, TicketStatusClosed:
		return true
	}
	return false
}

// Label renders the human readable status used in outbound messages.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusCreated:
		return "Created"
	case TicketStatusAssigned:
		return "Assigned"
	case TicketStatusOngoing:
		return "Ongoing"
	case TicketStatusPendingWithReviewer:
		return "Pending with reviewer"
	case TicketStatusPendingWithClient:
		return "Pending with client"
	case TicketStatusCompleted:
		return "Completed"
	case TicketStatusClosed:
		return "Closed"
	}
	return string(s)
}

// TicketPriority enumerates urgency, P1 highest.
type TicketPriority string

const (
	PriorityP1 TicketPriority = "P1"
	PriorityP2 TicketPriority = "P2"
	PriorityP3 TicketPriority = "P3"
	PriorityP4 TicketPriority = "P4"
	PriorityP5 TicketPriority = "P5"
)

// ValidPriority reports whether p is one of P1..P5.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4, PriorityP5:
		return true
	}
	return false
}

// TicketPoint is one entry of a ticket's ordered work-item list.
type TicketPoint struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Ticket is the aggregate for a collaboration room.
type Ticket struct {
	ID           string
	TicketNumber int64
	UID          string
	Title        string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	CreatedBy    string
	Points       []TicketPoint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TicketFile records a stored blob attached to a ticket. FileURL is the
// public link handed to readers; ObjectPath is the store-side key cleanup
// operations address the blob by.
type TicketFile struct {
	ID         string
	TicketID   string
	FileName   string
	FileURL    string
	ObjectPath string
	MimeType   string
	SizeBytes  int64
	UploadedBy string
	CreatedAt  time.Time
}
