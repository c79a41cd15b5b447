package domain

import "time"

// UserRole enumerates the four account classes.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleEmployee   UserRole = "EMPLOYEE"
	RoleFreelancer UserRole = "FREELANCER"
	RoleClient     UserRole = "CLIENT"
)

// IsStaff reports whether the role is an internal operator role.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleEmployee || r == RoleFreelancer
}

// ApprovalStatus tracks the admin review of a new account.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// User is the single account model; staff and clients differ only by role.
// Users referenced by historical messages are never hard-deleted, they are
// soft-removed from tickets instead.
type User struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Role           UserRole
	ApprovalStatus ApprovalStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
