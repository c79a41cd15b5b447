package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabkit/ticketdesk/internal/domain"
)

const ticketColumns = `id, ticket_number, uid, title, description, priority, status, created_by, points, created_at, updated_at`

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// CreateWithMembers inserts the ticket and its initial member rows in one
	// transaction. A partial member insert aborts the whole creation; a ticket
	// without its creator's membership row must never exist.
	CreateWithMembers(ctx context.Context, ticket *domain.Ticket, members []domain.TicketMember) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByUID(ctx context.Context, uid string) (*domain.Ticket, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error)
	ListAllIDs(ctx context.Context) ([]string, error)
	ListIDsCreatedBy(ctx context.Context, userID string) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	UpdatePriority(ctx context.Context, id string, priority domain.TicketPriority) error
	UpdatePoints(ctx context.Context, id string, points []domain.TicketPoint) error
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) CreateWithMembers(ctx context.Context, ticket *domain.Ticket, members []domain.TicketMember) error {
	points, err := encodePoints(ticket.Points)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTicket = `
        INSERT INTO tickets (uid, title, description, priority, status, created_by, points)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, ticket_number, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.UID,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedBy,
		points,
	).Scan(&ticket.ID, &ticket.TicketNumber, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	const insertMember = `
        INSERT INTO ticket_members (ticket_id, user_id, added_by, can_message_client)
        VALUES ($1,$2,$3,$4)
        RETURNING id, added_at`
	for i := range members {
		members[i].TicketID = ticket.ID
		if err := tx.QueryRow(ctx, insertMember,
			ticket.ID,
			members[i].UserID,
			members[i].AddedBy,
			members[i].CanMessageClient,
		).Scan(&members[i].ID, &members[i].AddedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByUID(ctx context.Context, uid string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE uid=$1`, uid)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id IN (` + placeholderList(1, len(ids)) + `) ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAllIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tickets ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *ticketRepository) ListIDsCreatedBy(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tickets WHERE created_by=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	return r.exec(ctx, `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, id string, priority domain.TicketPriority) error {
	return r.exec(ctx, `UPDATE tickets SET priority=$1, updated_at=NOW() WHERE id=$2`, priority, id)
}

func (r *ticketRepository) UpdatePoints(ctx context.Context, id string, points []domain.TicketPoint) error {
	encoded, err := encodePoints(points)
	if err != nil {
		return err
	}
	return r.exec(ctx, `UPDATE tickets SET points=$1, updated_at=NOW() WHERE id=$2`, encoded, id)
}

// Delete hard-removes the ticket; members, messages, files and stars go with
// it by referential cascade.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func encodePoints(points []domain.TicketPoint) ([]byte, error) {
	if points == nil {
		points = []domain.TicketPoint{}
	}
	return json.Marshal(points)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	var points []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.UID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&points,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return err
	}
	if len(points) > 0 {
		if err := json.Unmarshal(points, &ticket.Points); err != nil {
			return err
		}
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}
