package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/repository"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// NotificationService exposes the read side of the notification store.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(notifications repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// List pages through the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.notifications.ListByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, apperrors.NewDownstreamError("notification list", err)
	}
	return items, nil
}

// UnreadCount returns the badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, actor *domain.User) (int, error) {
	count, err := s.notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.NewDownstreamError("unread count", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read. The user scoping in
// the query means one user cannot mark another's rows.
func (s *NotificationService) MarkRead(ctx context.Context, actor *domain.User, notificationID string) error {
	if notificationID == "" {
		return apperrors.NewValidationError("notification id is required", nil)
	}
	if err := s.notifications.MarkRead(ctx, notificationID, actor.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("notification", nil)
		}
		return apperrors.NewDownstreamError("mark read", err)
	}
	return nil
}

// MarkAllRead clears the user's unread set.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *domain.User) error {
	if err := s.notifications.MarkAllRead(ctx, actor.ID); err != nil {
		return apperrors.NewDownstreamError("mark all read", err)
	}
	return nil
}
