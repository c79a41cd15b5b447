package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/events"
	"github.com/collabkit/ticketdesk/internal/repository"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// MessageService handles the ticket thread: send, list, edit, soft delete,
// forward and read receipts.
type MessageService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	access     *AccessResolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MessageDependencies bundles collaborators for message service.
type MessageDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	Access      *AccessResolver
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		access:     deps.Access,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// MessageInput describes a new thread entry.
type MessageInput struct {
	Body             string
	MessageType      domain.MessageType
	MessageMode      domain.MessageMode
	ReplyToMessageID *string
}

// SendMessage validates write access and mode, stores the message and fans
// out notification of it.
func (s *MessageService) SendMessage(ctx context.Context, sender *domain.User, ticketID string, input MessageInput) (*domain.Message, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", nil)
	}
	if input.MessageType == "" {
		input.MessageType = domain.MessageTypeText
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, sender, ticket, ActionPostMessage); err != nil {
		return nil, err
	}
	membership, err := s.access.Membership(ctx, sender.ID, ticketID)
	if err != nil {
		return nil, err
	}
	mode, err := ComposeMode(sender, membership, input.MessageMode)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		TicketID:         ticketID,
		SenderID:         sender.ID,
		Body:             body,
		MessageType:      input.MessageType,
		MessageMode:      mode,
		ReplyToMessageID: input.ReplyToMessageID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewDownstreamError("message insert", err)
	}

	s.publish(events.Event{
		Type:     events.EventMessageSent,
		TicketID: ticketID,
		ActorID:  sender.ID,
		Payload: events.MessageSentPayload{
			MessageID:   msg.ID,
			MessageMode: mode,
			SenderRole:  sender.Role,
			BodyPreview: preview(body, 120),
		},
	})
	return msg, nil
}

// ListMessages returns the visible thread for the viewer, read receipts
// attached.
func (s *MessageService) ListMessages(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.Message, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, viewer, ticket, ActionView); err != nil {
		return nil, err
	}
	membership, err := s.access.Membership(ctx, viewer.ID, ticketID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewDownstreamError("message list", err)
	}
	visible := FilterMessages(viewer, ticket, membership, msgs)
	if err := s.attachSeen(ctx, visible); err != nil {
		// Missing receipts degrade the payload, they do not fail the read.
		s.logger.Warn("seen lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return visible, nil
}

// EditMessage rewrites the body. Only the sender may edit, only text
// messages, and never after deletion.
func (s *MessageService) EditMessage(ctx context.Context, actor *domain.User, messageID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", nil)
	}
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actor.ID {
		return nil, apperrors.NewAuthorizationError("only the sender can edit a message")
	}
	if msg.MessageType != domain.MessageTypeText {
		return nil, apperrors.NewValidationError("only text messages can be edited", nil)
	}
	if msg.IsDeleted {
		return nil, apperrors.NewConflict("message is deleted", nil)
	}
	if err := s.messages.UpdateBody(ctx, messageID, body); err != nil {
		return nil, apperrors.NewDownstreamError("message update", err)
	}
	msg.Body = body
	msg.IsEdited = true
	return msg, nil
}

// DeleteMessage soft-deletes. The sender or an admin may delete; a second
// delete is a conflict and leaves the original deletion timestamp untouched.
func (s *MessageService) DeleteMessage(ctx context.Context, actor *domain.User, messageID string) error {
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actor.ID && actor.Role != domain.RoleAdmin {
		return apperrors.NewAuthorizationError("only the sender or an admin can delete a message")
	}
	if msg.IsDeleted {
		return apperrors.NewConflict("message already deleted", nil)
	}
	if err := s.messages.SoftDelete(ctx, messageID, actor.ID, time.Now()); err != nil {
		if apperrors.IsNotFound(err) {
			// Lost the race with another delete.
			return apperrors.NewConflict("message already deleted", nil)
		}
		return apperrors.NewDownstreamError("message delete", err)
	}
	return nil
}

// ForwardMessage copies a message into another ticket the actor can post to.
func (s *MessageService) ForwardMessage(ctx context.Context, actor *domain.User, messageID, targetTicketID string, mode domain.MessageMode) (*domain.Message, error) {
	source, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if source.IsDeleted {
		return nil, apperrors.NewConflict("cannot forward a deleted message", nil)
	}

	sourceTicket, err := s.loadTicket(ctx, source.TicketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, actor, sourceTicket, ActionView); err != nil {
		return nil, err
	}

	target, err := s.loadTicket(ctx, targetTicketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, actor, target, ActionPostMessage); err != nil {
		return nil, err
	}
	membership, err := s.access.Membership(ctx, actor.ID, targetTicketID)
	if err != nil {
		return nil, err
	}
	resolvedMode, err := ComposeMode(actor, membership, mode)
	if err != nil {
		return nil, err
	}

	forwarded := &domain.Message{
		TicketID:               targetTicketID,
		SenderID:               actor.ID,
		Body:                   source.Body,
		MessageType:            source.MessageType,
		MessageMode:            resolvedMode,
		ForwardedFromMessageID: &source.ID,
		ForwardedFromTicketID:  &source.TicketID,
	}
	if err := s.messages.Create(ctx, forwarded); err != nil {
		return nil, apperrors.NewDownstreamError("message insert", err)
	}

	s.publish(events.Event{
		Type:     events.EventMessageSent,
		TicketID: targetTicketID,
		ActorID:  actor.ID,
		Payload: events.MessageSentPayload{
			MessageID:   forwarded.ID,
			MessageMode: resolvedMode,
			SenderRole:  actor.Role,
			BodyPreview: preview(forwarded.Body, 120),
		},
	})
	return forwarded, nil
}

// MarkSeen records a read receipt for the viewer.
func (s *MessageService) MarkSeen(ctx context.Context, viewer *domain.User, messageID string) error {
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}
	ticket, err := s.loadTicket(ctx, msg.TicketID)
	if err != nil {
		return err
	}
	if err := s.access.Resolve(ctx, viewer, ticket, ActionView); err != nil {
		return err
	}
	if err := s.messages.MarkSeen(ctx, messageID, viewer.ID); err != nil {
		return apperrors.NewDownstreamError("seen insert", err)
	}
	return nil
}

func (s *MessageService) attachSeen(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]string, len(msgs))
	index := make(map[string]int, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
		index[msgs[i].ID] = i
	}
	receipts, err := s.messages.ListSeenByMessages(ctx, ids)
	if err != nil {
		return err
	}
	for _, receipt := range receipts {
		if i, ok := index[receipt.MessageID]; ok {
			msgs[i].SeenBy = append(msgs[i].SeenBy, receipt)
		}
	}
	return nil
}

func (s *MessageService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewDownstreamError("ticket lookup", err)
	}
	return ticket, nil
}

func (s *MessageService) loadMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
		}
		return nil, apperrors.NewDownstreamError("message lookup", err)
	}
	return msg, nil
}

func (s *MessageService) publish(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(context.Background(), event)
}

// preview truncates to at most max runes, cutting on rune boundaries so a
// multi-byte character at the cut point never yields invalid UTF-8.
func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
