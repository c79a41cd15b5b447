package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/events"
)

type dispatcherFixture struct {
	dispatcher    *NotificationDispatcher
	members       *stubMemberRepo
	users         *stubUserRepo
	notifications *stubNotificationRepo
	preferences   *stubPreferenceRepo
	whatsapp      *stubSender
	blobs         *stubBlobStore
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		members:       &stubMemberRepo{},
		users:         &stubUserRepo{},
		notifications: &stubNotificationRepo{},
		preferences:   &stubPreferenceRepo{},
		whatsapp:      &stubSender{},
		blobs:         newStubBlobStore(),
	}
	f.dispatcher = NewNotificationDispatcher(DispatcherDependencies{
		MemberRepo:       f.members,
		UserRepo:         f.users,
		NotificationRepo: f.notifications,
		PreferenceRepo:   f.preferences,
		WhatsApp:         f.whatsapp,
		Blobs:            f.blobs,
		Logger:           zap.NewNop(),
	})
	return f
}

func recipientIDs(created []domain.Notification) []string {
	ids := make([]string, 0, len(created))
	for _, n := range created {
		ids = append(ids, n.UserID)
	}
	return ids
}

func TestHandleTicketCreated_AdminsMinusActor(t *testing.T) {
	f := newDispatcherFixture()
	f.users.ListByRoleFunc = func(context.Context, domain.UserRole, domain.ApprovalStatus) ([]domain.User, error) {
		return []domain.User{{ID: "admin1"}, {ID: "admin2"}}, nil
	}

	event := events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "t1",
		ActorID:  "admin1",
		Payload:  events.TicketCreatedPayload{TicketNumber: 5, Title: "VPN", CreatorID: "admin1"},
	}
	require.NoError(t, f.dispatcher.handleTicketCreated(context.Background(), event))
	assert.Equal(t, []string{"admin2"}, recipientIDs(f.notifications.Created()))
}

func TestHandleStatusChanged_FanOutRespectsPreference(t *testing.T) {
	f := newDispatcherFixture()
	f.members.ListByTicketFunc = func(context.Context, string) ([]domain.TicketMember, error) {
		return []domain.TicketMember{{UserID: "actor"}, {UserID: "muted"}, {UserID: "listening"}}, nil
	}
	mutedPref := domain.DefaultPreference("muted")
	mutedPref.StatusChange = false
	f.preferences.GetByUserIDsFunc = func(context.Context, []string) (map[string]domain.NotificationPreference, error) {
		return map[string]domain.NotificationPreference{"muted": mutedPref}, nil
	}

	event := events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t1",
		ActorID:  "actor",
		Payload: events.TicketStatusChangedPayload{
			TicketNumber: 5, Title: "VPN", CreatorID: "client1",
			OldStatus: domain.TicketStatusOngoing, NewStatus: domain.TicketStatusCompleted,
		},
	}
	require.NoError(t, f.dispatcher.handleStatusChanged(context.Background(), event))
	// No preference row for "listening" means defaults, so it receives one.
	assert.Equal(t, []string{"listening"}, recipientIDs(f.notifications.Created()))
	assert.Empty(t, f.whatsapp.Sent())
}

func TestHandleStatusChanged_WhatsAppOnPendingWithClient(t *testing.T) {
	f := newDispatcherFixture()
	f.users.GetByIDFunc = func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, Role: domain.RoleClient, Phone: "+15550001"}, nil
	}
	f.members.ListByTicketFunc = func(context.Context, string) ([]domain.TicketMember, error) {
		return nil, nil
	}

	event := events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t1",
		ActorID:  "admin1",
		Payload: events.TicketStatusChangedPayload{
			TicketNumber: 5, Title: "VPN", CreatorID: "client1",
			OldStatus: domain.TicketStatusOngoing, NewStatus: domain.TicketStatusPendingWithClient,
		},
	}
	require.NoError(t, f.dispatcher.handleStatusChanged(context.Background(), event))

	sent := f.whatsapp.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+15550001", sent[0].Destination)

	created := f.notifications.Created()
	require.Len(t, created, 1)
	assert.Equal(t, domain.NotificationWhatsAppSent, created[0].Type)
	// The audit row is informational, not an unread badge.
	assert.True(t, created[0].IsRead)
}

func TestHandleStatusChanged_WhatsAppFailureRecordedNotPropagated(t *testing.T) {
	f := newDispatcherFixture()
	f.users.GetByIDFunc = func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, Role: domain.RoleClient, Phone: "+15550001"}, nil
	}
	f.whatsapp.Error = assert.AnError

	event := events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t1",
		ActorID:  "admin1",
		Payload: events.TicketStatusChangedPayload{
			TicketNumber: 5, Title: "VPN", CreatorID: "client1",
			NewStatus: domain.TicketStatusPendingWithClient,
		},
	}
	require.NoError(t, f.dispatcher.handleStatusChanged(context.Background(), event))

	created := f.notifications.Created()
	require.Len(t, created, 1)
	assert.Equal(t, domain.NotificationWhatsAppFailed, created[0].Type)
}

func TestHandleStatusChanged_NoWhatsAppForNonClientCreator(t *testing.T) {
	f := newDispatcherFixture()
	f.users.GetByIDFunc = func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, Role: domain.RoleAdmin, Phone: "+15550001"}, nil
	}

	event := events.Event{
		Type:    events.EventTicketStatusChanged,
		ActorID: "admin1",
		Payload: events.TicketStatusChangedPayload{CreatorID: "admin2", NewStatus: domain.TicketStatusPendingWithClient},
	}
	require.NoError(t, f.dispatcher.handleStatusChanged(context.Background(), event))
	assert.Empty(t, f.whatsapp.Sent())
}

func TestHandleMessageSent_InternalModeExcludesClients(t *testing.T) {
	f := newDispatcherFixture()
	f.members.ListByTicketFunc = func(context.Context, string) ([]domain.TicketMember, error) {
		return []domain.TicketMember{{UserID: "sender"}, {UserID: "emp1"}, {UserID: "client1"}}, nil
	}
	f.users.ListByIDsFunc = func(_ context.Context, ids []string) ([]domain.User, error) {
		return []domain.User{
			{ID: "emp1", Role: domain.RoleEmployee},
			{ID: "client1", Role: domain.RoleClient},
		}, nil
	}

	event := events.Event{
		Type:     events.EventMessageSent,
		TicketID: "t1",
		ActorID:  "sender",
		Payload:  events.MessageSentPayload{MessageID: "m1", MessageMode: domain.ModeInternal, SenderRole: domain.RoleEmployee},
	}
	require.NoError(t, f.dispatcher.handleMessageSent(context.Background(), event))
	assert.Equal(t, []string{"emp1"}, recipientIDs(f.notifications.Created()))
}

func TestHandleMessageSent_ClientModeReachesEveryNonActorMember(t *testing.T) {
	f := newDispatcherFixture()
	f.members.ListByTicketFunc = func(context.Context, string) ([]domain.TicketMember, error) {
		return []domain.TicketMember{{UserID: "sender"}, {UserID: "emp1"}, {UserID: "client1"}}, nil
	}

	event := events.Event{
		Type:     events.EventMessageSent,
		TicketID: "t1",
		ActorID:  "sender",
		Payload:  events.MessageSentPayload{MessageID: "m1", MessageMode: domain.ModeClient, SenderRole: domain.RoleClient},
	}
	require.NoError(t, f.dispatcher.handleMessageSent(context.Background(), event))
	assert.ElementsMatch(t, []string{"emp1", "client1"}, recipientIDs(f.notifications.Created()))
}

func TestHandleMemberAdded_DuplicateSuppressed(t *testing.T) {
	f := newDispatcherFixture()
	f.notifications.ExistsUnreadFunc = func(_ context.Context, userID string, nType domain.NotificationType, _, _ *string) (bool, error) {
		return userID == "already", nil
	}
	var created []domain.Notification
	f.notifications.CreateFunc = func(_ context.Context, n *domain.Notification) error {
		created = append(created, *n)
		return nil
	}

	event := events.Event{
		Type:     events.EventMemberAdded,
		TicketID: "t1",
		ActorID:  "admin1",
		Payload:  events.MemberAddedPayload{TicketNumber: 5, Title: "VPN", AddedUserIDs: []string{"already", "fresh", "admin1"}},
	}
	require.NoError(t, f.dispatcher.handleMemberAdded(context.Background(), event))
	assert.Equal(t, []string{"fresh"}, recipientIDs(created))
	assert.Equal(t, domain.NotificationTicketAssigned, created[0].Type)
}

func TestHandleUserReviewed_ApprovalAndRejectionTitles(t *testing.T) {
	f := newDispatcherFixture()
	var created []domain.Notification
	f.notifications.CreateFunc = func(_ context.Context, n *domain.Notification) error {
		created = append(created, *n)
		return nil
	}

	approve := events.Event{
		Type:    events.EventUserReviewed,
		ActorID: "admin1",
		Payload: events.UserReviewedPayload{UserID: "u1", Approved: true, Status: domain.ApprovalApproved},
	}
	require.NoError(t, f.dispatcher.handleUserReviewed(context.Background(), approve))

	reject := events.Event{
		Type:    events.EventUserReviewed,
		ActorID: "admin1",
		Payload: events.UserReviewedPayload{UserID: "u2", Approved: false, Status: domain.ApprovalRejected},
	}
	require.NoError(t, f.dispatcher.handleUserReviewed(context.Background(), reject))

	require.Len(t, created, 2)
	assert.Contains(t, created[0].Title, "approved")
	assert.Contains(t, created[1].Title, "rejected")
}

func TestHandleTicketDeleted_CleansBlobsAndNotifiesMembers(t *testing.T) {
	f := newDispatcherFixture()
	event := events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: "t1",
		ActorID:  "admin1",
		Payload: events.TicketDeletedPayload{
			TicketNumber: 5,
			Title:        "VPN",
			MemberIDs:    []string{"admin1", "client1", "emp1"},
			FilePaths:    []string{"t1/a.pdf", "t1/b.png"},
		},
	}
	require.NoError(t, f.dispatcher.handleTicketDeleted(context.Background(), event))
	// The store receives bare object keys, the shape its delete endpoint
	// builds paths from.
	assert.ElementsMatch(t, []string{"t1/a.pdf", "t1/b.png"}, f.blobs.removed)
	assert.ElementsMatch(t, []string{"client1", "emp1"}, recipientIDs(f.notifications.Created()))
}
