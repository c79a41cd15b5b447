package dto

import (
	"time"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// RequestOTPRequest payload.
type RequestOTPRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest payload.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// AuthResponse returns the signed token and the account it belongs to.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone,omitempty"`
	Role           domain.UserRole       `json:"role"`
	ApprovalStatus domain.ApprovalStatus `json:"approval_status"`
	CreatedAt      time.Time             `json:"created_at"`
}

// ReviewUserRequest payload for the admin review queue.
type ReviewUserRequest struct {
	Approve bool `json:"approve"`
}

// SetRoleRequest payload.
type SetRoleRequest struct {
	Role domain.UserRole `json:"role"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// PreferenceRequest and PreferenceResponse share the flag shape.
type PreferenceRequest struct {
	ChatClients    bool `json:"chat_clients"`
	ChatInternal   bool `json:"chat_internal"`
	StatusChange   bool `json:"status_change"`
	TicketCreation bool `json:"ticket_creation"`
	TicketAssigned bool `json:"ticket_assigned"`
}

// PreferenceResponse response.
type PreferenceResponse struct {
	ChatClients    bool `json:"chat_clients"`
	ChatInternal   bool `json:"chat_internal"`
	StatusChange   bool `json:"status_change"`
	TicketCreation bool `json:"ticket_creation"`
	TicketAssigned bool `json:"ticket_assigned"`
}
