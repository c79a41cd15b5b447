package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/events"
)

func pgxNoRows() error { return pgx.ErrNoRows }

// Hand-written stubs with per-method function fields. A nil field means the
// call succeeds with a zero result.

type stubTicketRepo struct {
	CreateWithMembersFunc func(ctx context.Context, ticket *domain.Ticket, members []domain.TicketMember) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Ticket, error)
	GetByUIDFunc          func(ctx context.Context, uid string) (*domain.Ticket, error)
	ListByIDsFunc         func(ctx context.Context, ids []string) ([]domain.Ticket, error)
	ListAllIDsFunc        func(ctx context.Context) ([]string, error)
	ListIDsCreatedByFunc  func(ctx context.Context, userID string) ([]string, error)
	UpdateStatusFunc      func(ctx context.Context, id string, status domain.TicketStatus) error
	UpdatePriorityFunc    func(ctx context.Context, id string, priority domain.TicketPriority) error
	UpdatePointsFunc      func(ctx context.Context, id string, points []domain.TicketPoint) error
	DeleteFunc            func(ctx context.Context, id string) error
}

func (m *stubTicketRepo) CreateWithMembers(ctx context.Context, ticket *domain.Ticket, members []domain.TicketMember) error {
	if m.CreateWithMembersFunc != nil {
		return m.CreateWithMembersFunc(ctx, ticket, members)
	}
	return nil
}

func (m *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.Ticket{ID: id}, nil
}

func (m *stubTicketRepo) GetByUID(ctx context.Context, uid string) (*domain.Ticket, error) {
	if m.GetByUIDFunc != nil {
		return m.GetByUIDFunc(ctx, uid)
	}
	return &domain.Ticket{UID: uid}, nil
}

func (m *stubTicketRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	if m.ListByIDsFunc != nil {
		return m.ListByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *stubTicketRepo) ListAllIDs(ctx context.Context) ([]string, error) {
	if m.ListAllIDsFunc != nil {
		return m.ListAllIDsFunc(ctx)
	}
	return nil, nil
}

func (m *stubTicketRepo) ListIDsCreatedBy(ctx context.Context, userID string) ([]string, error) {
	if m.ListIDsCreatedByFunc != nil {
		return m.ListIDsCreatedByFunc(ctx, userID)
	}
	return nil, nil
}

func (m *stubTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *stubTicketRepo) UpdatePriority(ctx context.Context, id string, priority domain.TicketPriority) error {
	if m.UpdatePriorityFunc != nil {
		return m.UpdatePriorityFunc(ctx, id, priority)
	}
	return nil
}

func (m *stubTicketRepo) UpdatePoints(ctx context.Context, id string, points []domain.TicketPoint) error {
	if m.UpdatePointsFunc != nil {
		return m.UpdatePointsFunc(ctx, id, points)
	}
	return nil
}

func (m *stubTicketRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type stubMemberRepo struct {
	AddFunc                 func(ctx context.Context, member *domain.TicketMember) error
	RemoveFunc              func(ctx context.Context, ticketID, userID string) error
	GetFunc                 func(ctx context.Context, ticketID, userID string) (*domain.TicketMember, error)
	ListByTicketFunc        func(ctx context.Context, ticketID string) ([]domain.TicketMember, error)
	ListByTicketIDsFunc     func(ctx context.Context, ticketIDs []string) ([]domain.TicketMember, error)
	ListTicketIDsByUserFunc func(ctx context.Context, userID string) ([]string, error)
	SetCanMessageClientFunc func(ctx context.Context, ticketID, userID string, allowed bool) error
}

func (m *stubMemberRepo) Add(ctx context.Context, member *domain.TicketMember) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, member)
	}
	return nil
}

func (m *stubMemberRepo) Remove(ctx context.Context, ticketID, userID string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, ticketID, userID)
	}
	return nil
}

func (m *stubMemberRepo) Get(ctx context.Context, ticketID, userID string) (*domain.TicketMember, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ticketID, userID)
	}
	return nil, nil
}

func (m *stubMemberRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMember, error) {
	if m.ListByTicketFunc != nil {
		return m.ListByTicketFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *stubMemberRepo) ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketMember, error) {
	if m.ListByTicketIDsFunc != nil {
		return m.ListByTicketIDsFunc(ctx, ticketIDs)
	}
	return nil, nil
}

func (m *stubMemberRepo) ListTicketIDsByUser(ctx context.Context, userID string) ([]string, error) {
	if m.ListTicketIDsByUserFunc != nil {
		return m.ListTicketIDsByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *stubMemberRepo) SetCanMessageClient(ctx context.Context, ticketID, userID string, allowed bool) error {
	if m.SetCanMessageClientFunc != nil {
		return m.SetCanMessageClientFunc(ctx, ticketID, userID, allowed)
	}
	return nil
}

type stubMessageRepo struct {
	CreateFunc                func(ctx context.Context, msg *domain.Message) error
	GetByIDFunc               func(ctx context.Context, id string) (*domain.Message, error)
	ListByTicketFunc          func(ctx context.Context, ticketID string) ([]domain.Message, error)
	ListRecentByTicketIDsFunc func(ctx context.Context, ticketIDs []string, limit int) ([]domain.Message, error)
	LatestByTicketFunc        func(ctx context.Context, ticketID string) (*domain.Message, error)
	UpdateBodyFunc            func(ctx context.Context, id, body string) error
	SoftDeleteFunc            func(ctx context.Context, id, deletedBy string, at time.Time) error
	MarkSeenFunc              func(ctx context.Context, messageID, userID string) error
	ListSeenByMessagesFunc    func(ctx context.Context, messageIDs []string) ([]domain.MessageSeen, error)
}

func (m *stubMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	return nil
}

func (m *stubMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.Message{ID: id}, nil
}

func (m *stubMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	if m.ListByTicketFunc != nil {
		return m.ListByTicketFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *stubMessageRepo) ListRecentByTicketIDs(ctx context.Context, ticketIDs []string, limit int) ([]domain.Message, error) {
	if m.ListRecentByTicketIDsFunc != nil {
		return m.ListRecentByTicketIDsFunc(ctx, ticketIDs, limit)
	}
	return nil, nil
}

func (m *stubMessageRepo) LatestByTicket(ctx context.Context, ticketID string) (*domain.Message, error) {
	if m.LatestByTicketFunc != nil {
		return m.LatestByTicketFunc(ctx, ticketID)
	}
	return nil, pgxNoRows()
}

func (m *stubMessageRepo) UpdateBody(ctx context.Context, id, body string) error {
	if m.UpdateBodyFunc != nil {
		return m.UpdateBodyFunc(ctx, id, body)
	}
	return nil
}

func (m *stubMessageRepo) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, deletedBy, at)
	}
	return nil
}

func (m *stubMessageRepo) MarkSeen(ctx context.Context, messageID, userID string) error {
	if m.MarkSeenFunc != nil {
		return m.MarkSeenFunc(ctx, messageID, userID)
	}
	return nil
}

func (m *stubMessageRepo) ListSeenByMessages(ctx context.Context, messageIDs []string) ([]domain.MessageSeen, error) {
	if m.ListSeenByMessagesFunc != nil {
		return m.ListSeenByMessagesFunc(ctx, messageIDs)
	}
	return nil, nil
}

type stubUserRepo struct {
	CreateFunc         func(ctx context.Context, user *domain.User) error
	GetByIDFunc        func(ctx context.Context, id string) (*domain.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*domain.User, error)
	ListByIDsFunc      func(ctx context.Context, ids []string) ([]domain.User, error)
	ListByRoleFunc     func(ctx context.Context, role domain.UserRole, approval domain.ApprovalStatus) ([]domain.User, error)
	ListAllFunc        func(ctx context.Context, limit, offset int) ([]domain.User, error)
	UpdateApprovalFunc func(ctx context.Context, id string, approval domain.ApprovalStatus) error
	UpdateRoleFunc     func(ctx context.Context, id string, role domain.UserRole) error
	UpdateProfileFunc  func(ctx context.Context, id, name, phone string) error
}

func (m *stubUserRepo) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (m *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, pgxNoRows()
}

func (m *stubUserRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if m.ListByIDsFunc != nil {
		return m.ListByIDsFunc(ctx, ids)
	}
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, domain.User{ID: id, Name: "user-" + id})
	}
	return users, nil
}

func (m *stubUserRepo) ListByRole(ctx context.Context, role domain.UserRole, approval domain.ApprovalStatus) ([]domain.User, error) {
	if m.ListByRoleFunc != nil {
		return m.ListByRoleFunc(ctx, role, approval)
	}
	return nil, nil
}

func (m *stubUserRepo) ListAll(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *stubUserRepo) UpdateApproval(ctx context.Context, id string, approval domain.ApprovalStatus) error {
	if m.UpdateApprovalFunc != nil {
		return m.UpdateApprovalFunc(ctx, id, approval)
	}
	return nil
}

func (m *stubUserRepo) UpdateRole(ctx context.Context, id string, role domain.UserRole) error {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil
}

func (m *stubUserRepo) UpdateProfile(ctx context.Context, id, name, phone string) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, name, phone)
	}
	return nil
}

type stubFileRepo struct {
	CreateFunc          func(ctx context.Context, file *domain.TicketFile) error
	ListByTicketFunc    func(ctx context.Context, ticketID string) ([]domain.TicketFile, error)
	ListByTicketIDsFunc func(ctx context.Context, ticketIDs []string) ([]domain.TicketFile, error)
}

func (m *stubFileRepo) Create(ctx context.Context, file *domain.TicketFile) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, file)
	}
	return nil
}

func (m *stubFileRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketFile, error) {
	if m.ListByTicketFunc != nil {
		return m.ListByTicketFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *stubFileRepo) ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketFile, error) {
	if m.ListByTicketIDsFunc != nil {
		return m.ListByTicketIDsFunc(ctx, ticketIDs)
	}
	return nil, nil
}

type stubStarRepo struct {
	StarFunc       func(ctx context.Context, ticketID, userID string) error
	UnstarFunc     func(ctx context.Context, ticketID, userID string) error
	StarredSetFunc func(ctx context.Context, userID string, ticketIDs []string) (map[string]bool, error)
}

func (m *stubStarRepo) Star(ctx context.Context, ticketID, userID string) error {
	if m.StarFunc != nil {
		return m.StarFunc(ctx, ticketID, userID)
	}
	return nil
}

func (m *stubStarRepo) Unstar(ctx context.Context, ticketID, userID string) error {
	if m.UnstarFunc != nil {
		return m.UnstarFunc(ctx, ticketID, userID)
	}
	return nil
}

func (m *stubStarRepo) StarredSet(ctx context.Context, userID string, ticketIDs []string) (map[string]bool, error) {
	if m.StarredSetFunc != nil {
		return m.StarredSetFunc(ctx, userID, ticketIDs)
	}
	return map[string]bool{}, nil
}

type stubNotificationRepo struct {
	mu      sync.Mutex
	created []domain.Notification

	CreateFunc       func(ctx context.Context, n *domain.Notification) error
	ExistsUnreadFunc func(ctx context.Context, userID string, nType domain.NotificationType, relatedUserID, relatedTicketID *string) (bool, error)
	ListByUserFunc   func(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error)
	CountUnreadFunc  func(ctx context.Context, userID string) (int, error)
	MarkReadFunc     func(ctx context.Context, id, userID string) error
	MarkAllReadFunc  func(ctx context.Context, userID string) error
}

func (m *stubNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	m.mu.Lock()
	m.created = append(m.created, *n)
	m.mu.Unlock()
	return nil
}

func (m *stubNotificationRepo) Created() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notification, len(m.created))
	copy(out, m.created)
	return out
}

func (m *stubNotificationRepo) ExistsUnread(ctx context.Context, userID string, nType domain.NotificationType, relatedUserID, relatedTicketID *string) (bool, error) {
	if m.ExistsUnreadFunc != nil {
		return m.ExistsUnreadFunc(ctx, userID, nType, relatedUserID, relatedTicketID)
	}
	return false, nil
}

func (m *stubNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *stubNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, userID)
	}
	return 0, nil
}

func (m *stubNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id, userID)
	}
	return nil
}

func (m *stubNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, userID)
	}
	return nil
}

type stubPreferenceRepo struct {
	GetFunc          func(ctx context.Context, userID string) (domain.NotificationPreference, error)
	GetByUserIDsFunc func(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error)
	UpsertFunc       func(ctx context.Context, pref *domain.NotificationPreference) error
}

func (m *stubPreferenceRepo) Get(ctx context.Context, userID string) (domain.NotificationPreference, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return domain.DefaultPreference(userID), nil
}

func (m *stubPreferenceRepo) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error) {
	if m.GetByUserIDsFunc != nil {
		return m.GetByUserIDsFunc(ctx, userIDs)
	}
	return map[string]domain.NotificationPreference{}, nil
}

func (m *stubPreferenceRepo) Upsert(ctx context.Context, pref *domain.NotificationPreference) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, pref)
	}
	return nil
}

// captureDispatcher records published events synchronously so tests can
// assert on them without timing concerns.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) Events() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Event, len(d.events))
	copy(out, d.events)
	return out
}

type stubSender struct {
	mu    sync.Mutex
	sent  []sentPayload
	Error error
}

type sentPayload struct {
	Destination string
	Subject     string
	Body        string
}

func (s *stubSender) Send(_ context.Context, destination, subject, body string) error {
	if s.Error != nil {
		return s.Error
	}
	s.mu.Lock()
	s.sent = append(s.sent, sentPayload{Destination: destination, Subject: subject, Body: body})
	s.mu.Unlock()
	return nil
}

func (s *stubSender) Sent() []sentPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentPayload, len(s.sent))
	copy(out, s.sent)
	return out
}

type stubBlobStore struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	removed  []string
	ListErr  error
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{uploaded: map[string][]byte{}}
}

func (s *stubBlobStore) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	s.uploaded[path] = data
	s.mu.Unlock()
	return "https://blobs.test/" + path, nil
}

func (s *stubBlobStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	s.removed = append(s.removed, path)
	s.mu.Unlock()
	return nil
}

func (s *stubBlobStore) List(_ context.Context, dirPrefix string) ([]string, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for path := range s.uploaded {
		paths = append(paths, path)
	}
	return paths, nil
}
