package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/events"
	"github.com/collabkit/ticketdesk/internal/notify"
	"github.com/collabkit/ticketdesk/internal/repository"
	"github.com/collabkit/ticketdesk/internal/storage"
)

// NotificationDispatcher consumes domain events and fans out notification
// rows: compute the base recipient set, drop the actor, gate each survivor on
// its stored preference (absent row = all enabled), insert one row per
// recipient. All failures here are side-effect failures: logged, never
// propagated to the operation that published the event.
type NotificationDispatcher struct {
	members       repository.MemberRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	preferences   repository.PreferenceRepository
	whatsapp      notify.Sender
	blobs         storage.BlobStore
	logger        *zap.Logger
}

// DispatcherDependencies bundles collaborators for the dispatcher.
type DispatcherDependencies struct {
	MemberRepo       repository.MemberRepository
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	PreferenceRepo   repository.PreferenceRepository
	WhatsApp         notify.Sender
	Blobs            storage.BlobStore
	Logger           *zap.Logger
}

// NewNotificationDispatcher constructs the dispatcher.
func NewNotificationDispatcher(deps DispatcherDependencies) *NotificationDispatcher {
	return &NotificationDispatcher{
		members:       deps.MemberRepo,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		preferences:   deps.PreferenceRepo,
		whatsapp:      deps.WhatsApp,
		blobs:         deps.Blobs,
		logger:        deps.Logger,
	}
}

// RegisterHandlers subscribes to the event stream.
func (d *NotificationDispatcher) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, d.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, d.handleStatusChanged)
	dispatcher.Subscribe(events.EventTicketDeleted, d.handleTicketDeleted)
	dispatcher.Subscribe(events.EventMessageSent, d.handleMessageSent)
	dispatcher.Subscribe(events.EventMemberAdded, d.handleMemberAdded)
	dispatcher.Subscribe(events.EventUserReviewed, d.handleUserReviewed)
}

// handleTicketCreated notifies all approved admins except the creator.
func (d *NotificationDispatcher) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	admins, err := d.users.ListByRole(ctx, domain.RoleAdmin, domain.ApprovalApproved)
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(admins))
	for _, admin := range admins {
		if admin.ID == event.ActorID {
			continue
		}
		recipients = append(recipients, admin.ID)
	}

	d.fanOut(ctx, recipients, domain.CategoryTicketCreation, domain.Notification{
		Type:            domain.NotificationTicketCreated,
		Title:           fmt.Sprintf("New ticket #%d", payload.TicketNumber),
		Message:         payload.Title,
		RelatedUserID:   &payload.CreatorID,
		RelatedTicketID: &event.TicketID,
	})
	return nil
}

// handleStatusChanged fans out to all non-actor members; on entry into
// "Pending with client" it also pushes a WhatsApp message to a client
// creator with a phone number, logging the outcome as an auxiliary
// pre-read notification row.
func (d *NotificationDispatcher) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	if payload.NewStatus == domain.TicketStatusPendingWithClient {
		d.notifyClientViaWhatsApp(ctx, event, payload)
	}

	members, err := d.members.ListByTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(members))
	for _, member := range members {
		if member.UserID == event.ActorID {
			continue
		}
		recipients = append(recipients, member.UserID)
	}

	d.fanOut(ctx, recipients, domain.CategoryStatusChange, domain.Notification{
		Type:            domain.NotificationStatusChange,
		Title:           fmt.Sprintf("Ticket #%d is now %s", payload.TicketNumber, payload.NewStatus.Label()),
		Message:         payload.Title,
		RelatedUserID:   &event.ActorID,
		RelatedTicketID: &event.TicketID,
	})
	return nil
}

func (d *NotificationDispatcher) notifyClientViaWhatsApp(ctx context.Context, event events.Event, payload events.TicketStatusChangedPayload) {
	creator, err := d.users.GetByID(ctx, payload.CreatorID)
	if err != nil {
		d.logger.Warn("whatsapp creator lookup failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return
	}
	if creator.Role != domain.RoleClient || creator.Phone == "" {
		return
	}

	text := fmt.Sprintf("Ticket #%d (%s) is now %s", payload.TicketNumber, payload.Title, payload.NewStatus.Label())
	sendErr := d.whatsapp.Send(ctx, creator.Phone, "", text)

	audit := domain.Notification{
		UserID:          creator.ID,
		Type:            domain.NotificationWhatsAppSent,
		Title:           "WhatsApp notification sent",
		Message:         text,
		RelatedTicketID: &event.TicketID,
		IsRead:          true,
	}
	if sendErr != nil {
		d.logger.Warn("whatsapp send failed", zap.String("ticket_id", event.TicketID), zap.Error(sendErr))
		audit.Type = domain.NotificationWhatsAppFailed
		audit.Title = "WhatsApp notification failed"
	}
	if err := d.notifications.Create(ctx, &audit); err != nil {
		d.logger.Warn("whatsapp audit insert failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
}

// handleMessageSent notifies members except the sender. Internal-mode
// messages additionally exclude clients: they cannot see the message, so
// they must not hear about it either.
func (d *NotificationDispatcher) handleMessageSent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageSentPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	members, err := d.members.ListByTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}
	candidateIDs := make([]string, 0, len(members))
	for _, member := range members {
		if member.UserID == event.ActorID {
			continue
		}
		candidateIDs = append(candidateIDs, member.UserID)
	}

	recipients := candidateIDs
	if payload.MessageMode == domain.ModeInternal {
		users, err := d.users.ListByIDs(ctx, candidateIDs)
		if err != nil {
			return err
		}
		recipients = recipients[:0]
		for _, user := range users {
			if user.Role == domain.RoleClient {
				continue
			}
			recipients = append(recipients, user.ID)
		}
	}

	category := domain.CategoryChatInternal
	if payload.SenderRole == domain.RoleClient || payload.MessageMode == domain.ModeClient {
		category = domain.CategoryChatClients
	}

	d.fanOut(ctx, recipients, category, domain.Notification{
		Type:            domain.NotificationChatMessage,
		Title:           "New message",
		Message:         payload.BodyPreview,
		RelatedUserID:   &event.ActorID,
		RelatedTicketID: &event.TicketID,
	})
	return nil
}

// handleMemberAdded notifies each added user. Assignment is never
// preference-filtered but is duplicate-suppressed: a retried add must not
// multiply rows.
func (d *NotificationDispatcher) handleMemberAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MemberAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	for _, userID := range payload.AddedUserIDs {
		if userID == event.ActorID {
			continue
		}
		n := domain.Notification{
			UserID:          userID,
			Type:            domain.NotificationTicketAssigned,
			Title:           fmt.Sprintf("Added to ticket #%d", payload.TicketNumber),
			Message:         payload.Title,
			RelatedUserID:   &event.ActorID,
			RelatedTicketID: &event.TicketID,
		}
		d.insertSuppressed(ctx, n)
	}
	return nil
}

// handleUserReviewed notifies the affected user of approval or rejection.
// Always delivered, duplicate-suppressed against retried reviews.
func (d *NotificationDispatcher) handleUserReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserReviewedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	title := "Your account was approved"
	if !payload.Approved {
		title = "Your account was rejected"
	}
	n := domain.Notification{
		UserID:        payload.UserID,
		Type:          domain.NotificationUserRequest,
		Title:         title,
		RelatedUserID: &event.ActorID,
	}
	d.insertSuppressed(ctx, n)
	return nil
}

// handleTicketDeleted tells former members their room is gone and cleans up
// blobs. Both are best-effort; the delete already happened.
func (d *NotificationDispatcher) handleTicketDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketDeletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	for _, objectPath := range payload.FilePaths {
		if err := d.blobs.Remove(ctx, objectPath); err != nil {
			d.logger.Warn("blob cleanup failed", zap.String("ticket_id", event.TicketID), zap.String("path", objectPath), zap.Error(err))
		}
	}

	recipients := make([]string, 0, len(payload.MemberIDs))
	for _, userID := range payload.MemberIDs {
		if userID == event.ActorID {
			continue
		}
		recipients = append(recipients, userID)
	}
	for _, userID := range recipients {
		n := domain.Notification{
			UserID:        userID,
			Type:          domain.NotificationTicketDeleted,
			Title:         fmt.Sprintf("Ticket #%d was deleted", payload.TicketNumber),
			Message:       payload.Title,
			RelatedUserID: &event.ActorID,
		}
		if err := d.notifications.Create(ctx, &n); err != nil {
			d.logger.Warn("notification insert failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// fanOut gates each recipient on its preference and inserts one row each.
// A single failed insert or preference lookup skips that recipient only.
func (d *NotificationDispatcher) fanOut(ctx context.Context, recipientIDs []string, category domain.NotificationCategory, template domain.Notification) {
	if len(recipientIDs) == 0 {
		return
	}

	prefs, err := d.preferences.GetByUserIDs(ctx, recipientIDs)
	if err != nil {
		d.logger.Warn("preference lookup failed; assuming defaults", zap.Error(err))
		prefs = map[string]domain.NotificationPreference{}
	}

	for _, userID := range recipientIDs {
		pref, ok := prefs[userID]
		if !ok {
			pref = domain.DefaultPreference(userID)
		}
		if !pref.Allows(category) {
			continue
		}
		n := template
		n.UserID = userID
		if err := d.notifications.Create(ctx, &n); err != nil {
			d.logger.Warn("notification insert failed",
				zap.String("user_id", userID),
				zap.String("type", string(n.Type)),
				zap.Error(err))
		}
	}
}

// insertSuppressed skips the insert when an unread row with the same
// (type, related ids, recipient) triple exists. The read-then-write pair is
// not race-free; a concurrent duplicate is possible but bounded.
func (d *NotificationDispatcher) insertSuppressed(ctx context.Context, n domain.Notification) {
	exists, err := d.notifications.ExistsUnread(ctx, n.UserID, n.Type, n.RelatedUserID, n.RelatedTicketID)
	if err != nil {
		d.logger.Warn("duplicate check failed", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	if exists {
		return
	}
	if err := d.notifications.Create(ctx, &n); err != nil {
		d.logger.Warn("notification insert failed",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
}
