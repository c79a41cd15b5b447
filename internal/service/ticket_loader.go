package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/collabkit/ticketdesk/internal/domain"
	"github.com/collabkit/ticketdesk/internal/repository"
	apperrors "github.com/collabkit/ticketdesk/pkg/util"
)

// Chunk sizing keeps any single IN-list query under the store's practical
// query-size ceiling and bounds concurrent load.
const (
	loaderChunkSize        = 25
	recentMessagesPerChunk = loaderChunkSize * 4
	residualConcurrency    = 8
)

// placeholderUserName fills in for members or senders whose user record no
// longer resolves.
const placeholderUserName = "Unknown user"

// TicketView is the assembled dashboard object for one ticket.
type TicketView struct {
	Ticket      domain.Ticket
	Creator     domain.User
	Members     []MemberView
	Files       []domain.TicketFile
	Starred     bool
	LastMessage *MessageView
	// Partial marks a view whose chunk had a failed batch query; some of the
	// fields above may be empty.
	Partial bool
}

// MemberView pairs a membership row with its resolved user.
type MemberView struct {
	Member domain.TicketMember
	User   domain.User
}

// MessageView pairs a message with its resolved sender.
type MessageView struct {
	Message domain.Message
	Sender  domain.User
}

// TicketLoader assembles per-ticket composite views for many tickets at once
// without one round trip per ticket per relation. Ticket IDs are partitioned
// into fixed-size chunks; within a chunk the batch queries run in parallel;
// user records are cached across chunks so total user lookups are bounded by
// the distinct-user count, not the ticket count.
type TicketLoader struct {
	tickets  repository.TicketRepository
	members  repository.MemberRepository
	files    repository.FileRepository
	stars    repository.StarRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	logger   *zap.Logger
}

// LoaderDependencies bundles repositories for the loader.
type LoaderDependencies struct {
	TicketRepo  repository.TicketRepository
	MemberRepo  repository.MemberRepository
	FileRepo    repository.FileRepository
	StarRepo    repository.StarRepository
	MessageRepo repository.MessageRepository
	UserRepo    repository.UserRepository
	Logger      *zap.Logger
}

// NewTicketLoader constructs the loader.
func NewTicketLoader(deps LoaderDependencies) *TicketLoader {
	return &TicketLoader{
		tickets:  deps.TicketRepo,
		members:  deps.MemberRepo,
		files:    deps.FileRepo,
		stars:    deps.StarRepo,
		messages: deps.MessageRepo,
		users:    deps.UserRepo,
		logger:   deps.Logger,
	}
}

// LoadForUser resolves the requester's visible ticket set and aggregates it.
// Admins and employees see the whole corpus; everyone else sees the union of
// created-by and member-of. Only a failure of this visibility query fails
// the call; chunk failures degrade their tickets to partial views.
func (l *TicketLoader) LoadForUser(ctx context.Context, requester *domain.User) ([]TicketView, error) {
	ids, err := l.visibleTicketIDs(ctx, requester)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, requester, ids)
}

func (l *TicketLoader) visibleTicketIDs(ctx context.Context, requester *domain.User) ([]string, error) {
	if requester.Role == domain.RoleAdmin || requester.Role == domain.RoleEmployee {
		ids, err := l.tickets.ListAllIDs(ctx)
		if err != nil {
			return nil, apperrors.NewDownstreamError("ticket id query", err)
		}
		return ids, nil
	}

	created, err := l.tickets.ListIDsCreatedBy(ctx, requester.ID)
	if err != nil {
		return nil, apperrors.NewDownstreamError("ticket id query", err)
	}
	memberOf, err := l.members.ListTicketIDsByUser(ctx, requester.ID)
	if err != nil {
		return nil, apperrors.NewDownstreamError("ticket id query", err)
	}

	seen := make(map[string]struct{}, len(created)+len(memberOf))
	union := make([]string, 0, len(created)+len(memberOf))
	for _, id := range append(created, memberOf...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		union = append(union, id)
	}
	return union, nil
}

// chunkData carries one chunk's batch results; failures records which
// queries failed so assembly can degrade instead of dropping tickets.
type chunkData struct {
	ids     []string
	tickets []domain.Ticket
	members []domain.TicketMember
	files   []domain.TicketFile
	starred map[string]bool
	recent  []domain.Message

	mu       sync.Mutex
	failures []error
}

func (c *chunkData) fail(err error) {
	c.mu.Lock()
	c.failures = append(c.failures, err)
	c.mu.Unlock()
}

// Load aggregates the given ticket IDs into views for the requester.
func (l *TicketLoader) Load(ctx context.Context, requester *domain.User, ticketIDs []string) ([]TicketView, error) {
	if len(ticketIDs) == 0 {
		return []TicketView{}, nil
	}

	userCache := make(map[string]domain.User)
	views := make([]TicketView, 0, len(ticketIDs))

	for _, chunkIDs := range chunkIDs(ticketIDs, loaderChunkSize) {
		chunk := l.loadChunk(ctx, requester, chunkIDs)
		for _, failure := range chunk.failures {
			l.logger.Warn("chunk batch query failed", zap.Error(apperrors.NewPartialFailure("ticket chunk", failure)))
		}

		l.resolveUsers(ctx, chunk, userCache)
		chunkViews := l.assemble(ctx, requester, chunk, userCache)
		views = append(views, chunkViews...)
	}
	return views, nil
}

// loadChunk issues the chunk's batch queries in parallel. Each query failure
// is captured, not propagated: errgroup is used for structure and joining,
// not cancellation.
func (l *TicketLoader) loadChunk(ctx context.Context, requester *domain.User, ids []string) *chunkData {
	chunk := &chunkData{ids: ids, starred: map[string]bool{}}

	var group errgroup.Group
	group.Go(func() error {
		tickets, err := l.tickets.ListByIDs(ctx, ids)
		if err != nil {
			chunk.fail(err)
			return nil
		}
		chunk.tickets = tickets
		return nil
	})
	group.Go(func() error {
		members, err := l.members.ListByTicketIDs(ctx, ids)
		if err != nil {
			chunk.fail(err)
			return nil
		}
		chunk.members = members
		return nil
	})
	group.Go(func() error {
		files, err := l.files.ListByTicketIDs(ctx, ids)
		if err != nil {
			chunk.fail(err)
			return nil
		}
		chunk.files = files
		return nil
	})
	group.Go(func() error {
		starred, err := l.stars.StarredSet(ctx, requester.ID, ids)
		if err != nil {
			chunk.fail(err)
			return nil
		}
		chunk.starred = starred
		return nil
	})
	group.Go(func() error {
		// The store has no "latest per group" primitive: fetch a bounded
		// window of newest messages and reduce client-side.
		recent, err := l.messages.ListRecentByTicketIDs(ctx, ids, recentMessagesPerChunk)
		if err != nil {
			chunk.fail(err)
			return nil
		}
		chunk.recent = recent
		return nil
	})
	_ = group.Wait()
	return chunk
}

// resolveUsers fetches only the user IDs not already cached from earlier
// chunks.
func (l *TicketLoader) resolveUsers(ctx context.Context, chunk *chunkData, cache map[string]domain.User) {
	missing := make([]string, 0)
	note := func(id string) {
		if id == "" {
			return
		}
		if _, ok := cache[id]; ok {
			return
		}
		cache[id] = domain.User{} // reserve to avoid duplicate fetches
		missing = append(missing, id)
	}

	for _, ticket := range chunk.tickets {
		note(ticket.CreatedBy)
	}
	for _, member := range chunk.members {
		note(member.UserID)
	}
	for _, msg := range chunk.recent {
		note(msg.SenderID)
	}
	if len(missing) == 0 {
		return
	}

	users, err := l.users.ListByIDs(ctx, missing)
	if err != nil {
		l.logger.Warn("user batch fetch failed", zap.Int("count", len(missing)), zap.Error(err))
		// Leave reservations in place; the assembler substitutes placeholders.
		return
	}
	for _, user := range users {
		cache[user.ID] = user
	}
}

func (l *TicketLoader) assemble(ctx context.Context, requester *domain.User, chunk *chunkData, cache map[string]domain.User) []TicketView {
	ticketByID := make(map[string]domain.Ticket, len(chunk.tickets))
	for _, ticket := range chunk.tickets {
		ticketByID[ticket.ID] = ticket
	}
	membersByTicket := make(map[string][]domain.TicketMember)
	requesterMembership := make(map[string]*domain.TicketMember)
	for i, member := range chunk.members {
		membersByTicket[member.TicketID] = append(membersByTicket[member.TicketID], member)
		if member.UserID == requester.ID {
			requesterMembership[member.TicketID] = &chunk.members[i]
		}
	}
	filesByTicket := make(map[string][]domain.TicketFile)
	for _, file := range chunk.files {
		filesByTicket[file.TicketID] = append(filesByTicket[file.TicketID], file)
	}
	// Reduce the recent-message window to the newest message per ticket that
	// the requester may read; the window is ordered newest-first, so the
	// first visible hit wins. Messages the mode or join-date filters hide
	// must never surface as a dashboard preview.
	latestByTicket := make(map[string]domain.Message)
	for _, msg := range chunk.recent {
		if _, ok := latestByTicket[msg.TicketID]; ok {
			continue
		}
		ticket, ok := ticketByID[msg.TicketID]
		if !ok {
			continue
		}
		if !messageVisible(requester, &ticket, requesterMembership[msg.TicketID], &msg) {
			continue
		}
		latestByTicket[msg.TicketID] = msg
	}

	l.fillResidualMessages(ctx, requester, chunk.ids, ticketByID, requesterMembership, latestByTicket, cache)

	degraded := len(chunk.failures) > 0
	views := make([]TicketView, 0, len(chunk.ids))
	for _, id := range chunk.ids {
		view := TicketView{Partial: degraded}

		ticket, ok := ticketByID[id]
		if !ok {
			// The ticket row itself is missing (failed batch or concurrent
			// delete). Keep the entry rather than silently dropping it.
			view.Ticket = domain.Ticket{ID: id}
			view.Creator = placeholderUser("")
			view.Partial = true
			views = append(views, view)
			continue
		}
		view.Ticket = ticket
		view.Creator = l.userOrPlaceholder(cache, ticket.CreatedBy)
		view.Starred = chunk.starred[id]
		view.Files = filesByTicket[id]
		for _, member := range membersByTicket[id] {
			view.Members = append(view.Members, MemberView{
				Member: member,
				User:   l.userOrPlaceholder(cache, member.UserID),
			})
		}
		if msg, ok := latestByTicket[id]; ok {
			view.LastMessage = &MessageView{
				Message: msg,
				Sender:  l.userOrPlaceholder(cache, msg.SenderID),
			}
		}
		views = append(views, view)
	}
	return views
}

// fillResidualMessages runs the second pass for cold tickets: those whose
// chunk window held no visible message. Only the residual set is queried,
// with bounded parallelism. A residual message the requester may not read is
// dropped rather than searched past; the preview stays empty for that ticket.
func (l *TicketLoader) fillResidualMessages(ctx context.Context, requester *domain.User, ids []string, ticketByID map[string]domain.Ticket, requesterMembership map[string]*domain.TicketMember, latestByTicket map[string]domain.Message, cache map[string]domain.User) {
	residual := make([]string, 0)
	for _, id := range ids {
		if _, ok := latestByTicket[id]; ok {
			continue
		}
		if _, ok := ticketByID[id]; !ok {
			continue
		}
		residual = append(residual, id)
	}
	if len(residual) == 0 {
		return
	}

	results := make([]*domain.Message, len(residual))
	var group errgroup.Group
	group.SetLimit(residualConcurrency)
	for i, ticketID := range residual {
		i, ticketID := i, ticketID
		group.Go(func() error {
			msg, err := l.messages.LatestByTicket(ctx, ticketID)
			if err != nil {
				if !apperrors.IsNotFound(err) {
					l.logger.Warn("residual message query failed", zap.String("ticket_id", ticketID), zap.Error(err))
				}
				return nil
			}
			results[i] = msg
			return nil
		})
	}
	_ = group.Wait()

	senderIDs := make([]string, 0)
	for i, ticketID := range residual {
		if results[i] == nil {
			continue
		}
		ticket := ticketByID[ticketID]
		if !messageVisible(requester, &ticket, requesterMembership[ticketID], results[i]) {
			continue
		}
		latestByTicket[ticketID] = *results[i]
		if _, ok := cache[results[i].SenderID]; !ok {
			cache[results[i].SenderID] = domain.User{}
			senderIDs = append(senderIDs, results[i].SenderID)
		}
	}
	if len(senderIDs) > 0 {
		users, err := l.users.ListByIDs(ctx, senderIDs)
		if err != nil {
			l.logger.Warn("residual sender fetch failed", zap.Error(err))
			return
		}
		for _, user := range users {
			cache[user.ID] = user
		}
	}
}

func (l *TicketLoader) userOrPlaceholder(cache map[string]domain.User, userID string) domain.User {
	if user, ok := cache[userID]; ok && user.ID != "" {
		return user
	}
	return placeholderUser(userID)
}

func placeholderUser(userID string) domain.User {
	return domain.User{ID: userID, Name: placeholderUserName}
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = loaderChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
