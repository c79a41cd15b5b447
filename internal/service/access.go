package service

import (
	"context"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/repository"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// TicketAction is a capability checked against a user and a ticket.
type TicketAction string

const (
	ActionView           TicketAction = "view"
	ActionPostMessage    TicketAction = "postMessage"
	ActionAddMember      TicketAction = "addMember"
	ActionRemoveMember   TicketAction = "removeMember"
	ActionChangeStatus   TicketAction = "changeStatus"
	ActionChangePriority TicketAction = "changePriority"
	ActionDelete         TicketAction = "delete"
	ActionExportAll      TicketAction = "exportAll"
)

// AccessResolver decides role-based capability on a ticket. The logic is role
// first, membership second: admins bypass the membership gate entirely, staff
// roles need a member row, clients need to be the creator or a member. Every
// denial is an authorization error, never a silent no-op.
type AccessResolver struct {
	members repository.MemberRepository
}

// NewAccessResolver constructs the resolver.
func NewAccessResolver(members repository.MemberRepository) *AccessResolver {
	return &AccessResolver{members: members}
}

// Resolve returns nil when user may perform action on ticket.
func (r *AccessResolver) Resolve(ctx context.Context, user *domain.User, ticket *domain.Ticket, action TicketAction) error {
	if user == nil || ticket == nil {
		return apperrors.NewAuthorizationError("access denied")
	}

	switch user.Role {
	case domain.RoleAdmin:
		return nil

	case domain.RoleEmployee:
		switch action {
		case ActionView, ActionPostMessage, ActionAddMember, ActionRemoveMember, ActionChangeStatus:
			return r.requireMembership(ctx, user, ticket)
		}
		return apperrors.NewAuthorizationError("admin role required")

	case domain.RoleFreelancer:
		switch action {
		case ActionView, ActionPostMessage, ActionChangeStatus:
			return r.requireMembership(ctx, user, ticket)
		}
		return apperrors.NewAuthorizationError("freelancers cannot perform this action")

	case domain.RoleClient:
		switch action {
		case ActionView, ActionPostMessage:
			if ticket.CreatedBy == user.ID {
				return nil
			}
			return r.requireMembership(ctx, user, ticket)
		}
		return apperrors.NewAuthorizationError("clients cannot perform this action")
	}

	return apperrors.NewAuthorizationError("unknown role")
}

// Membership returns the caller's member row, or nil when not a member.
// A query error is distinguished from absence.
func (r *AccessResolver) Membership(ctx context.Context, userID, ticketID string) (*domain.TicketMember, error) {
	member, err := r.members.Get(ctx, ticketID, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewDownstreamError("membership lookup", err)
	}
	return member, nil
}

func (r *AccessResolver) requireMembership(ctx context.Context, user *domain.User, ticket *domain.Ticket) error {
	member, err := r.Membership(ctx, user.ID, ticket.ID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperrors.NewAuthorizationError("not a member of this ticket")
	}
	return nil
}
