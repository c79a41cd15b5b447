package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabkit/ticketdesk/internal/domain"
)

const messageColumns = `id, ticket_id, sender_id, message, message_type, message_mode,
        reply_to_message_id, forwarded_from_message_id, forwarded_from_ticket_id,
        is_edited, is_deleted, deleted_at, deleted_by, created_at, updated_at`

// MessageRepository manages ticket thread messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	// ListRecentByTicketIDs returns up to limit newest messages across the
	// given tickets; the caller reduces them to one-per-ticket.
	ListRecentByTicketIDs(ctx context.Context, ticketIDs []string, limit int) ([]domain.Message, error)
	LatestByTicket(ctx context.Context, ticketID string) (*domain.Message, error)
	UpdateBody(ctx context.Context, id, body string) error
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error
	MarkSeen(ctx context.Context, messageID, userID string) error
	ListSeenByMessages(ctx context.Context, messageIDs []string) ([]domain.MessageSeen, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_id, message, message_type, message_mode,
            reply_to_message_id, forwarded_from_message_id, forwarded_from_ticket_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderID,
		msg.Body,
		msg.MessageType,
		msg.MessageMode,
		msg.ReplyToMessageID,
		msg.ForwardedFromMessageID,
		msg.ForwardedFromTicketID,
	).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM ticket_messages WHERE id=$1`
	var msg domain.Message
	if err := scanMessage(r.pool.QueryRow(ctx, query, id), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) ListRecentByTicketIDs(ctx context.Context, ticketIDs []string, limit int) ([]domain.Message, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = len(ticketIDs) * 4
	}
	query := `SELECT ` + messageColumns + ` FROM ticket_messages
        WHERE ticket_id IN (` + placeholderList(1, len(ticketIDs)) + `)
        ORDER BY created_at DESC LIMIT ` + placeholderList(len(ticketIDs)+1, 1)
	args := append(stringArgs(ticketIDs), limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) LatestByTicket(ctx context.Context, ticketID string) (*domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM ticket_messages
        WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT 1`
	var msg domain.Message
	if err := scanMessage(r.pool.QueryRow(ctx, query, ticketID), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) UpdateBody(ctx context.Context, id, body string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE ticket_messages SET message=$1, is_edited=TRUE, updated_at=NOW() WHERE id=$2`,
		body, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SoftDelete flags the row without touching the message column; the stored
// body stays intact for audit.
func (r *messageRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE ticket_messages SET is_deleted=TRUE, deleted_at=$1, deleted_by=$2, updated_at=NOW()
         WHERE id=$3 AND is_deleted=FALSE`,
		at, deletedBy, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *messageRepository) MarkSeen(ctx context.Context, messageID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO message_seen (message_id, user_id) VALUES ($1,$2)
         ON CONFLICT (message_id, user_id) DO NOTHING`,
		messageID, userID)
	return err
}

func (r *messageRepository) ListSeenByMessages(ctx context.Context, messageIDs []string) ([]domain.MessageSeen, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query := `SELECT message_id, user_id, seen_at FROM message_seen
        WHERE message_id IN (` + placeholderList(1, len(messageIDs)) + `)`
	rows, err := r.pool.Query(ctx, query, stringArgs(messageIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MessageSeen
	for rows.Next() {
		var seen domain.MessageSeen
		if err := rows.Scan(&seen.MessageID, &seen.UserID, &seen.SeenAt); err != nil {
			return nil, err
		}
		result = append(result, seen)
	}
	return result, rows.Err()
}

func scanMessage(row pgx.Row, msg *domain.Message) error {
	return row.Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.SenderID,
		&msg.Body,
		&msg.MessageType,
		&msg.MessageMode,
		&msg.ReplyToMessageID,
		&msg.ForwardedFromMessageID,
		&msg.ForwardedFromTicketID,
		&msg.IsEdited,
		&msg.IsDeleted,
		&msg.DeletedAt,
		&msg.DeletedBy,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
