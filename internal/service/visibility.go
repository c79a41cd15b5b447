package service

import (
	"github.com/collabkit/ticketdesk/internal/domain"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// FilterMessages returns the subset of msgs the viewer may read. Two filters
// compose, applied identically on every read path:
//
//   - mode: a client who is not the ticket creator sees only client-mode
//     messages; staff and the creator (any role) see all modes.
//   - join date: a member who is neither admin, employee, nor the creator
//     sees only messages created at or after their added_at.
//
// membership may be nil (admins and the creator need no row). The check runs
// at read time and never mutates stored messages.
func FilterMessages(viewer *domain.User, ticket *domain.Ticket, membership *domain.TicketMember, msgs []domain.Message) []domain.Message {
	filtered := make([]domain.Message, 0, len(msgs))
	for _, msg := range msgs {
		if messageVisible(viewer, ticket, membership, &msg) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// messageVisible applies both filters to a single message. Every read path
// that surfaces message content goes through this predicate, including the
// dashboard loader's last-message reduction.
func messageVisible(viewer *domain.User, ticket *domain.Ticket, membership *domain.TicketMember, msg *domain.Message) bool {
	isCreator := viewer.ID == ticket.CreatedBy
	if viewer.Role == domain.RoleClient && !isCreator && msg.MessageMode != domain.ModeClient {
		return false
	}
	joinRestricted := viewer.Role != domain.RoleAdmin &&
		viewer.Role != domain.RoleEmployee &&
		!isCreator &&
		membership != nil
	if joinRestricted && msg.CreatedAt.Before(membership.AddedAt) {
		return false
	}
	return true
}

// ComposeMode validates the mode a sender may write in. Clients always post
// in client mode regardless of the requested one; employees need the
// can_message_client grant to target client mode; admins and freelancers may
// use either mode.
func ComposeMode(sender *domain.User, membership *domain.TicketMember, requested domain.MessageMode) (domain.MessageMode, error) {
	if requested == "" {
		requested = domain.ModeInternal
	}
	if requested != domain.ModeInternal && requested != domain.ModeClient {
		return "", apperrors.NewValidationError("invalid message mode", map[string]any{"mode": requested})
	}

	switch sender.Role {
	case domain.RoleClient:
		return domain.ModeClient, nil
	case domain.RoleEmployee:
		if requested == domain.ModeClient && (membership == nil || !membership.CanMessageClient) {
			return "", apperrors.NewAuthorizationError("not permitted to message the client")
		}
		return requested, nil
	case domain.RoleAdmin, domain.RoleFreelancer:
		return requested, nil
	}
	return "", apperrors.NewAuthorizationError("unknown role")
}
