package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collabkit/ticketdesk/internal/domain"
)

type loaderFixture struct {
	loader   *TicketLoader
	tickets  *stubTicketRepo
	members  *stubMemberRepo
	files    *stubFileRepo
	stars    *stubStarRepo
	messages *stubMessageRepo
	users    *stubUserRepo
}

func newLoaderFixture() *loaderFixture {
	f := &loaderFixture{
		tickets:  &stubTicketRepo{},
		members:  &stubMemberRepo{},
		files:    &stubFileRepo{},
		stars:    &stubStarRepo{},
		messages: &stubMessageRepo{},
		users:    &stubUserRepo{},
	}
	f.loader = NewTicketLoader(LoaderDependencies{
		TicketRepo:  f.tickets,
		MemberRepo:  f.members,
		FileRepo:    f.files,
		StarRepo:    f.stars,
		MessageRepo: f.messages,
		UserRepo:    f.users,
		Logger:      zap.NewNop(),
	})
	return f
}

func ticketIDRange(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%03d", i)
	}
	return ids
}

func TestVisibleTicketIDs_StaffSeeEverything(t *testing.T) {
	f := newLoaderFixture()
	f.tickets.ListAllIDsFunc = func(context.Context) ([]string, error) {
		return []string{"t1", "t2", "t3"}, nil
	}

	for _, role := range []domain.UserRole{domain.RoleAdmin, domain.RoleEmployee} {
		ids, err := f.loader.visibleTicketIDs(context.Background(), &domain.User{ID: "u1", Role: role})
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2", "t3"}, ids, "role %s", role)
	}
}

func TestVisibleTicketIDs_OthersGetCreatedUnionMemberOf(t *testing.T) {
	f := newLoaderFixture()
	f.tickets.ListIDsCreatedByFunc = func(context.Context, string) ([]string, error) {
		return []string{"t1", "t2"}, nil
	}
	f.members.ListTicketIDsByUserFunc = func(context.Context, string) ([]string, error) {
		return []string{"t2", "t3"}, nil
	}

	ids, err := f.loader.visibleTicketIDs(context.Background(), &domain.User{ID: "c1", Role: domain.RoleClient})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids)
}

func TestLoad_AssemblesCompositeViews(t *testing.T) {
	f := newLoaderFixture()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.tickets.ListByIDsFunc = func(_ context.Context, ids []string) ([]domain.Ticket, error) {
		out := make([]domain.Ticket, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.Ticket{ID: id, Title: "T " + id, CreatedBy: "creator"})
		}
		return out, nil
	}
	f.members.ListByTicketIDsFunc = func(_ context.Context, ids []string) ([]domain.TicketMember, error) {
		return []domain.TicketMember{
			{TicketID: "t1", UserID: "creator"},
			{TicketID: "t1", UserID: "emp1"},
			{TicketID: "t2", UserID: "creator"},
		}, nil
	}
	f.files.ListByTicketIDsFunc = func(context.Context, []string) ([]domain.TicketFile, error) {
		return []domain.TicketFile{{TicketID: "t2", FileName: "a.pdf"}}, nil
	}
	f.stars.StarredSetFunc = func(context.Context, string, []string) (map[string]bool, error) {
		return map[string]bool{"t1": true}, nil
	}
	f.messages.ListRecentByTicketIDsFunc = func(context.Context, []string, int) ([]domain.Message, error) {
		// Newest first across the window: t1 has two entries, t2 none.
		return []domain.Message{
			{ID: "m2", TicketID: "t1", SenderID: "emp1", CreatedAt: now.Add(time.Hour)},
			{ID: "m1", TicketID: "t1", SenderID: "creator", CreatedAt: now},
		}, nil
	}
	f.messages.LatestByTicketFunc = func(_ context.Context, ticketID string) (*domain.Message, error) {
		if ticketID == "t2" {
			return &domain.Message{ID: "m0", TicketID: "t2", SenderID: "creator", CreatedAt: now.Add(-time.Hour)}, nil
		}
		return nil, pgxNoRows()
	}

	views, err := f.loader.Load(context.Background(), &domain.User{ID: "viewer", Role: domain.RoleAdmin}, []string{"t1", "t2"})
	require.NoError(t, err)
	require.Len(t, views, 2)

	t1 := views[0]
	assert.Equal(t, "t1", t1.Ticket.ID)
	assert.False(t, t1.Partial)
	assert.True(t, t1.Starred)
	assert.Len(t, t1.Members, 2)
	require.NotNil(t, t1.LastMessage)
	assert.Equal(t, "m2", t1.LastMessage.Message.ID, "newest message wins the reduction")
	assert.NotEmpty(t, t1.Creator.Name)

	t2 := views[1]
	assert.False(t, t2.Starred)
	assert.Len(t, t2.Files, 1)
	require.NotNil(t, t2.LastMessage, "residual pass fills cold tickets")
	assert.Equal(t, "m0", t2.LastMessage.Message.ID)
}

func TestLoad_ChunkFailureDegradesNotAborts(t *testing.T) {
	f := newLoaderFixture()
	f.tickets.ListByIDsFunc = func(_ context.Context, ids []string) ([]domain.Ticket, error) {
		out := make([]domain.Ticket, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.Ticket{ID: id, CreatedBy: "creator"})
		}
		return out, nil
	}
	f.members.ListByTicketIDsFunc = func(context.Context, []string) ([]domain.TicketMember, error) {
		return nil, assert.AnError
	}

	views, err := f.loader.Load(context.Background(), &domain.User{ID: "viewer", Role: domain.RoleAdmin}, []string{"t1", "t2"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, view := range views {
		assert.True(t, view.Partial)
		assert.Empty(t, view.Members)
	}
}

func TestLoad_MissingTicketRowKeptAsPartialEntry(t *testing.T) {
	f := newLoaderFixture()
	f.tickets.ListByIDsFunc = func(context.Context, []string) ([]domain.Ticket, error) {
		return []domain.Ticket{{ID: "t1", CreatedBy: "creator"}}, nil
	}

	views, err := f.loader.Load(context.Background(), &domain.User{ID: "viewer", Role: domain.RoleAdmin}, []string{"t1", "t2"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.False(t, views[0].Partial)
	assert.True(t, views[1].Partial)
	assert.Equal(t, "t2", views[1].Ticket.ID)
}

func TestLoad_UserCacheBoundsLookupsAcrossChunks(t *testing.T) {
	f := newLoaderFixture()
	ids := ticketIDRange(60) // three chunks of 25, 25, 10

	f.tickets.ListByIDsFunc = func(_ context.Context, chunk []string) ([]domain.Ticket, error) {
		out := make([]domain.Ticket, 0, len(chunk))
		for _, id := range chunk {
			out = append(out, domain.Ticket{ID: id, CreatedBy: "creator"})
		}
		return out, nil
	}

	var mu sync.Mutex
	var fetched []string
	f.users.ListByIDsFunc = func(_ context.Context, userIDs []string) ([]domain.User, error) {
		mu.Lock()
		fetched = append(fetched, userIDs...)
		mu.Unlock()
		out := make([]domain.User, 0, len(userIDs))
		for _, id := range userIDs {
			out = append(out, domain.User{ID: id, Name: "user-" + id})
		}
		return out, nil
	}

	views, err := f.loader.Load(context.Background(), &domain.User{ID: "viewer", Role: domain.RoleAdmin}, ids)
	require.NoError(t, err)
	assert.Len(t, views, 60)
	// The shared creator resolves once, not once per chunk.
	assert.Equal(t, []string{"creator"}, fetched)
}

func TestLoad_UnresolvedUsersGetPlaceholder(t *testing.T) {
	f := newLoaderFixture()
	f.tickets.ListByIDsFunc = func(context.Context, []string) ([]domain.Ticket, error) {
		return []domain.Ticket{{ID: "t1", CreatedBy: "ghost"}}, nil
	}
	f.users.ListByIDsFunc = func(context.Context, []string) ([]domain.User, error) {
		return nil, nil // nothing resolves
	}

	views, err := f.loader.Load(context.Background(), &domain.User{ID: "viewer", Role: domain.RoleAdmin}, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, placeholderUserName, views[0].Creator.Name)
	assert.Equal(t, "ghost", views[0].Creator.ID)
}

func TestLoad_EmptyInput(t *testing.T) {
	f := newLoaderFixture()
	views, err := f.loader.Load(context.Background(), &domain.User{ID: "viewer", Role: domain.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestChunkIDs(t *testing.T) {
	chunks := chunkIDs(ticketIDRange(60), 25)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 25)
	assert.Len(t, chunks[1], 25)
	assert.Len(t, chunks[2], 10)

	assert.Empty(t, chunkIDs(nil, 25))
}

func TestLoad_LastMessagePreviewHidesInternalFromClients(t *testing.T) {
	f := newLoaderFixture()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	f.tickets.ListByIDsFunc = func(_ context.Context, ids []string) ([]domain.Ticket, error) {
		out := make([]domain.Ticket, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.Ticket{ID: id, CreatedBy: "creator"})
		}
		return out, nil
	}
	f.members.ListByTicketIDsFunc = func(_ context.Context, ids []string) ([]domain.TicketMember, error) {
		out := make([]domain.TicketMember, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.TicketMember{TicketID: id, UserID: "client1", AddedAt: now.Add(-time.Hour)})
		}
		return out, nil
	}
	// t1's window: newest is internal, an older client-mode message follows.
	// t2's window holds only an internal message, so nothing is previewable.
	f.messages.ListRecentByTicketIDsFunc = func(context.Context, []string, int) ([]domain.Message, error) {
		return []domain.Message{
			{ID: "m-int", TicketID: "t1", SenderID: "emp1", Body: "staff only", MessageMode: domain.ModeInternal, CreatedAt: now},
			{ID: "m-cli", TicketID: "t1", SenderID: "creator", Body: "hello", MessageMode: domain.ModeClient, CreatedAt: now.Add(-time.Minute)},
			{ID: "m-int2", TicketID: "t2", SenderID: "emp1", Body: "more staff talk", MessageMode: domain.ModeInternal, CreatedAt: now},
		}, nil
	}
	f.messages.LatestByTicketFunc = func(_ context.Context, ticketID string) (*domain.Message, error) {
		return &domain.Message{ID: "m-int2", TicketID: ticketID, SenderID: "emp1", MessageMode: domain.ModeInternal, CreatedAt: now}, nil
	}

	client := &domain.User{ID: "client1", Role: domain.RoleClient}
	views, err := f.loader.Load(context.Background(), client, []string{"t1", "t2"})
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.NotNil(t, views[0].LastMessage)
	assert.Equal(t, "m-cli", views[0].LastMessage.Message.ID)
	assert.Nil(t, views[1].LastMessage, "internal-only thread must not surface a preview")

	// The same corpus previews the internal message for staff.
	admin := &domain.User{ID: "admin1", Role: domain.RoleAdmin}
	views, err = f.loader.Load(context.Background(), admin, []string{"t1", "t2"})
	require.NoError(t, err)
	require.NotNil(t, views[0].LastMessage)
	assert.Equal(t, "m-int", views[0].LastMessage.Message.ID)
}

func TestLoad_LastMessagePreviewHonorsJoinDate(t *testing.T) {
	f := newLoaderFixture()
	joined := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	f.tickets.ListByIDsFunc = func(context.Context, []string) ([]domain.Ticket, error) {
		return []domain.Ticket{{ID: "t1", CreatedBy: "creator"}}, nil
	}
	f.members.ListByTicketIDsFunc = func(context.Context, []string) ([]domain.TicketMember, error) {
		return []domain.TicketMember{{TicketID: "t1", UserID: "free1", AddedAt: joined}}, nil
	}
	preJoin := domain.Message{ID: "m-old", TicketID: "t1", SenderID: "emp1", MessageMode: domain.ModeInternal, CreatedAt: joined.Add(-time.Hour)}
	f.messages.ListRecentByTicketIDsFunc = func(context.Context, []string, int) ([]domain.Message, error) {
		return []domain.Message{preJoin}, nil
	}
	f.messages.LatestByTicketFunc = func(context.Context, string) (*domain.Message, error) {
		msg := preJoin
		return &msg, nil
	}

	freelancer := &domain.User{ID: "free1", Role: domain.RoleFreelancer}
	views, err := f.loader.Load(context.Background(), freelancer, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].LastMessage, "pre-join messages must not surface a preview")
}
