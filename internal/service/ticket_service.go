package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/events"
	"github.com/collabkit/ticketdesk/internal/repository"
	"github.com/collabkit/ticketdesk/internal/storage"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// TicketService coordinates ticket workflows: creation, lifecycle, members,
// files and deletion. Status writes are single atomic updates; everything
// that hangs off them goes through the async dispatcher.
type TicketService struct {
	tickets    repository.TicketRepository
	members    repository.MemberRepository
	files      repository.FileRepository
	stars      repository.StarRepository
	users      repository.UserRepository
	access     *AccessResolver
	blobs      storage.BlobStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	MemberRepo repository.MemberRepository
	FileRepo   repository.FileRepository
	StarRepo   repository.StarRepository
	UserRepo   repository.UserRepository
	Access     *AccessResolver
	Blobs      storage.BlobStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		members:    deps.MemberRepo,
		files:      deps.FileRepo,
		stars:      deps.StarRepo,
		users:      deps.UserRepo,
		access:     deps.Access,
		blobs:      deps.Blobs,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Priority      domain.TicketPriority
	Points        []domain.TicketPoint
	MemberIDs     []string
	CreationFiles []FileInput
}

// FileInput defines attachment metadata recorded at creation. The blob is
// already uploaded; ObjectPath is its store-side key.
type FileInput struct {
	FileName   string
	FileURL    string
	ObjectPath string
	MimeType   string
	SizeBytes  int64
}

// CreateTicket creates a ticket room. The creator and every approved admin
// become members in the same transaction as the ticket row; a partial member
// insert aborts the whole creation.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if creator.Role != domain.RoleAdmin && creator.Role != domain.RoleClient {
		return nil, apperrors.NewAuthorizationError("only admins and clients can open tickets")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityP3
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin, domain.ApprovalApproved)
	if err != nil {
		return nil, apperrors.NewDownstreamError("admin lookup", err)
	}

	ticket := &domain.Ticket{
		UID:         generateTicketUID(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      domain.TicketStatusCreated,
		CreatedBy:   creator.ID,
		Points:      input.Points,
	}

	memberIDs := map[string]struct{}{creator.ID: {}}
	members := []domain.TicketMember{{UserID: creator.ID, AddedBy: creator.ID}}
	for _, admin := range admins {
		if _, seen := memberIDs[admin.ID]; seen {
			continue
		}
		memberIDs[admin.ID] = struct{}{}
		members = append(members, domain.TicketMember{UserID: admin.ID, AddedBy: creator.ID})
	}
	explicit := make([]string, 0, len(input.MemberIDs))
	for _, id := range input.MemberIDs {
		if _, seen := memberIDs[id]; seen {
			continue
		}
		memberIDs[id] = struct{}{}
		members = append(members, domain.TicketMember{UserID: id, AddedBy: creator.ID})
		explicit = append(explicit, id)
	}

	if err := s.tickets.CreateWithMembers(ctx, ticket, members); err != nil {
		return nil, apperrors.NewDownstreamError("ticket creation", err)
	}

	// File metadata is not part of the membership invariant: a failed insert
	// degrades the ticket, it does not undo it.
	for _, file := range input.CreationFiles {
		record := &domain.TicketFile{
			TicketID:   ticket.ID,
			FileName:   file.FileName,
			FileURL:    file.FileURL,
			ObjectPath: file.ObjectPath,
			MimeType:   file.MimeType,
			SizeBytes:  file.SizeBytes,
			UploadedBy: creator.ID,
		}
		if err := s.files.Create(ctx, record); err != nil {
			s.logger.Warn("creation file record failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("file", file.FileName),
				zap.Error(err))
		}
	}

	s.publish(events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			CreatorID:    creator.ID,
		},
	})
	if len(explicit) > 0 {
		s.publish(events.Event{
			Type:     events.EventMemberAdded,
			TicketID: ticket.ID,
			ActorID:  creator.ID,
			Payload: events.MemberAddedPayload{
				TicketNumber: ticket.TicketNumber,
				Title:        ticket.Title,
				AddedUserIDs: explicit,
			},
		})
	}
	return ticket, nil
}

// GetTicket loads a ticket with access enforcement.
func (s *TicketService) GetTicket(ctx context.Context, viewer *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, viewer, ticket, ActionView); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ChangeStatus sets the lifecycle field. Transitions are free-form: any
// authorized actor may set any valid value; validity is authorization, not
// state adjacency. Side effects ride on the dispatcher and never roll the
// write back.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, actor, ticket, ActionChangeStatus); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, ticketID, newStatus); err != nil {
		return nil, apperrors.NewDownstreamError("status update", err)
	}
	ticket.Status = newStatus

	s.publish(events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			CreatorID:    ticket.CreatedBy,
			OldStatus:    oldStatus,
			NewStatus:    newStatus,
		},
	})
	return ticket, nil
}

// ChangePriority is admin-only.
func (s *TicketService) ChangePriority(ctx context.Context, actor *domain.User, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, actor, ticket, ActionChangePriority); err != nil {
		return nil, err
	}
	if err := s.tickets.UpdatePriority(ctx, ticketID, priority); err != nil {
		return nil, apperrors.NewDownstreamError("priority update", err)
	}
	ticket.Priority = priority
	return ticket, nil
}

// UpdatePoints replaces the ordered work-item list.
func (s *TicketService) UpdatePoints(ctx context.Context, actor *domain.User, ticketID string, points []domain.TicketPoint) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, actor, ticket, ActionChangeStatus); err != nil {
		return nil, err
	}
	if err := s.tickets.UpdatePoints(ctx, ticketID, points); err != nil {
		return nil, apperrors.NewDownstreamError("points update", err)
	}
	ticket.Points = points
	return ticket, nil
}

// AddMembers links users to the ticket room. An employee may add themselves
// without prior membership; all other additions go through the access table.
func (s *TicketService) AddMembers(ctx context.Context, actor *domain.User, ticketID string, userIDs []string, canMessageClient bool) error {
	if len(userIDs) == 0 {
		return apperrors.NewValidationError("no users given", nil)
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	selfOnly := len(userIDs) == 1 && userIDs[0] == actor.ID
	if !(selfOnly && actor.Role == domain.RoleEmployee) {
		if err := s.access.Resolve(ctx, actor, ticket, ActionAddMember); err != nil {
			return err
		}
	}

	added := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		member := &domain.TicketMember{
			TicketID:         ticketID,
			UserID:           userID,
			AddedBy:          actor.ID,
			CanMessageClient: canMessageClient,
		}
		if err := s.members.Add(ctx, member); err != nil {
			if err == repository.ErrDuplicateMember {
				return apperrors.NewConflict("user is already a member", map[string]any{"user_id": userID})
			}
			return apperrors.NewDownstreamError("member insert", err)
		}
		if userID != actor.ID {
			added = append(added, userID)
		}
	}

	if len(added) > 0 {
		s.publish(events.Event{
			Type:     events.EventMemberAdded,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.MemberAddedPayload{
				TicketNumber: ticket.TicketNumber,
				Title:        ticket.Title,
				AddedUserIDs: added,
			},
		})
	}
	return nil
}

// RemoveMember unlinks a user. The creator's row is irremovable regardless of
// who asks.
func (s *TicketService) RemoveMember(ctx context.Context, actor *domain.User, ticketID, userID string) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.CreatedBy == userID {
		return apperrors.NewAuthorizationError("the ticket creator cannot be removed")
	}
	if err := s.access.Resolve(ctx, actor, ticket, ActionRemoveMember); err != nil {
		return err
	}
	if err := s.members.Remove(ctx, ticketID, userID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("member", map[string]any{"user_id": userID})
		}
		return apperrors.NewDownstreamError("member removal", err)
	}
	return nil
}

// SetCanMessageClient toggles the employee-only client-messaging grant.
func (s *TicketService) SetCanMessageClient(ctx context.Context, actor *domain.User, ticketID, userID string, allowed bool) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewAuthorizationError("admin role required")
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.members.SetCanMessageClient(ctx, ticketID, userID, allowed); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("member", map[string]any{"user_id": userID})
		}
		return apperrors.NewDownstreamError("member update", err)
	}
	return nil
}

// ListMembers returns the room's membership, with user records resolved, for
// an authorized viewer.
func (s *TicketService) ListMembers(ctx context.Context, viewer *domain.User, ticketID string) ([]MemberView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, viewer, ticket, ActionView); err != nil {
		return nil, err
	}
	members, err := s.members.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewDownstreamError("member list", err)
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}
	byID := make(map[string]domain.User, len(ids))
	if len(ids) > 0 {
		users, err := s.users.ListByIDs(ctx, ids)
		if err != nil {
			return nil, apperrors.NewDownstreamError("member user lookup", err)
		}
		for _, user := range users {
			byID[user.ID] = user
		}
	}

	views := make([]MemberView, 0, len(members))
	for _, member := range members {
		user, ok := byID[member.UserID]
		if !ok {
			user = placeholderUser(member.UserID)
		}
		views = append(views, MemberView{Member: member, User: user})
	}
	return views, nil
}

// Star marks the ticket for the viewer's dashboard.
func (s *TicketService) Star(ctx context.Context, viewer *domain.User, ticketID string, starred bool) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.access.Resolve(ctx, viewer, ticket, ActionView); err != nil {
		return err
	}
	if starred {
		err = s.stars.Star(ctx, ticketID, viewer.ID)
	} else {
		err = s.stars.Unstar(ctx, ticketID, viewer.ID)
	}
	if err != nil {
		return apperrors.NewDownstreamError("star update", err)
	}
	return nil
}

// UploadFile stores a blob, verifies it landed, then records metadata.
func (s *TicketService) UploadFile(ctx context.Context, actor *domain.User, ticketID, fileName, contentType string, data []byte) (*domain.TicketFile, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Resolve(ctx, actor, ticket, ActionPostMessage); err != nil {
		return nil, err
	}
	if fileName == "" || len(data) == 0 {
		return nil, apperrors.NewValidationError("file name and content are required", nil)
	}

	objectPath := fmt.Sprintf("%s/%s-%s", ticketID, uuid.NewString()[:8], fileName)
	url, err := s.blobs.Upload(ctx, objectPath, data, contentType)
	if err != nil {
		return nil, apperrors.NewDownstreamError("blob upload", err)
	}

	// Verify the object actually landed before recording metadata.
	entries, err := s.blobs.List(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewDownstreamError("blob verify", err)
	}
	found := false
	for _, entry := range entries {
		if entry == path.Base(objectPath) || entry == objectPath {
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.NewDownstreamError("blob verify", fmt.Errorf("uploaded object %s missing", objectPath))
	}

	record := &domain.TicketFile{
		TicketID:   ticketID,
		FileName:   fileName,
		FileURL:    url,
		ObjectPath: objectPath,
		MimeType:   contentType,
		SizeBytes:  int64(len(data)),
		UploadedBy: actor.ID,
	}
	if err := s.files.Create(ctx, record); err != nil {
		return nil, apperrors.NewDownstreamError("file record", err)
	}
	return record, nil
}

// DeleteTicket hard-deletes the ticket; the store cascade removes members,
// messages, files and stars. Blob cleanup and member fan-out run after the
// fact, best-effort.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.access.Resolve(ctx, actor, ticket, ActionDelete); err != nil {
		return err
	}

	// Snapshot members and files before the cascade erases them.
	members, err := s.members.ListByTicket(ctx, ticketID)
	if err != nil {
		s.logger.Warn("member snapshot before delete failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	files, err := s.files.ListByTicket(ctx, ticketID)
	if err != nil {
		s.logger.Warn("file snapshot before delete failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.NewDownstreamError("ticket delete", err)
	}

	memberIDs := make([]string, 0, len(members))
	for _, member := range members {
		memberIDs = append(memberIDs, member.UserID)
	}
	filePaths := make([]string, 0, len(files))
	for _, file := range files {
		if file.ObjectPath == "" {
			continue
		}
		filePaths = append(filePaths, file.ObjectPath)
	}

	s.publish(events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.TicketDeletedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			MemberIDs:    memberIDs,
			FilePaths:    filePaths,
		},
	})
	return nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewDownstreamError("ticket lookup", err)
	}
	return ticket, nil
}

func (s *TicketService) publish(event events.Event) {
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

func generateTicketUID() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
