package dto

import (
	"time"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// CreateTicketRequest payload. Files carries descriptors of blobs the client
// already uploaded; their metadata is recorded with the new ticket.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Points      []domain.TicketPoint  `json:"points"`
	MemberIDs   []string              `json:"member_ids"`
	Files       []CreationFileRequest `json:"files"`
}

// CreationFileRequest describes one pre-uploaded attachment.
type CreationFileRequest struct {
	FileName   string `json:"file_name"`
	FileURL    string `json:"file_url"`
	ObjectPath string `json:"object_path"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// UpdatePointsRequest payload.
type UpdatePointsRequest struct {
	Points []domain.TicketPoint `json:"points"`
}

// AddMembersRequest payload.
type AddMembersRequest struct {
	UserIDs          []string `json:"user_ids"`
	CanMessageClient bool     `json:"can_message_client"`
}

// SetClientAccessRequest payload.
type SetClientAccessRequest struct {
	Allowed bool `json:"allowed"`
}

// StarRequest payload.
type StarRequest struct {
	Starred bool `json:"starred"`
}

// TicketResponse is the bare ticket shape.
type TicketResponse struct {
	ID           string                `json:"id"`
	TicketNumber int64                 `json:"ticket_number"`
	UID          string                `json:"uid"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	StatusLabel  string                `json:"status_label"`
	CreatedBy    string                `json:"created_by"`
	Points       []domain.TicketPoint  `json:"points"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// MemberResponse pairs membership with the resolved user.
type MemberResponse struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	AddedBy          string    `json:"added_by"`
	AddedAt          time.Time `json:"added_at"`
	CanMessageClient bool      `json:"can_message_client"`
}

// FileResponse metadata for a stored attachment.
type FileResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketViewResponse is the aggregated dashboard entry.
type TicketViewResponse struct {
	Ticket      TicketResponse   `json:"ticket"`
	CreatorName string           `json:"creator_name"`
	Members     []MemberResponse `json:"members"`
	Files       []FileResponse   `json:"files"`
	Starred     bool             `json:"starred"`
	LastMessage *MessageResponse `json:"last_message,omitempty"`
	Partial     bool             `json:"partial,omitempty"`
}
