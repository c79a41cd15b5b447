package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// ErrDuplicateMember signals the (ticket, user) pair already exists.
var ErrDuplicateMember = errors.New("member already exists")

const memberColumns = `id, ticket_id, user_id, added_by, added_at, can_message_client`

// MemberRepository manages ticket membership rows.
type MemberRepository interface {
	Add(ctx context.Context, member *domain.TicketMember) error
	Remove(ctx context.Context, ticketID, userID string) error
	Get(ctx context.Context, ticketID, userID string) (*domain.TicketMember, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMember, error)
	ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketMember, error)
	ListTicketIDsByUser(ctx context.Context, userID string) ([]string, error)
	SetCanMessageClient(ctx context.Context, ticketID, userID string, allowed bool) error
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository instantiates repository.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

func (r *memberRepository) Add(ctx context.Context, member *domain.TicketMember) error {
	const query = `
        INSERT INTO ticket_members (ticket_id, user_id, added_by, can_message_client)
        VALUES ($1,$2,$3,$4)
        RETURNING id, added_at`
	err := r.pool.QueryRow(ctx, query,
		member.TicketID,
		member.UserID,
		member.AddedBy,
		member.CanMessageClient,
	).Scan(&member.ID, &member.AddedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateMember
		}
		return err
	}
	return nil
}

func (r *memberRepository) Remove(ctx context.Context, ticketID, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_members WHERE ticket_id=$1 AND user_id=$2`, ticketID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *memberRepository) Get(ctx context.Context, ticketID, userID string) (*domain.TicketMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM ticket_members WHERE ticket_id=$1 AND user_id=$2`
	var member domain.TicketMember
	if err := scanMember(r.pool.QueryRow(ctx, query, ticketID, userID), &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM ticket_members WHERE ticket_id=$1 ORDER BY added_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketMember, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + memberColumns + ` FROM ticket_members WHERE ticket_id IN (` + placeholderList(1, len(ticketIDs)) + `)`
	rows, err := r.pool.Query(ctx, query, stringArgs(ticketIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) ListTicketIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT ticket_id FROM ticket_members WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *memberRepository) SetCanMessageClient(ctx context.Context, ticketID, userID string, allowed bool) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE ticket_members SET can_message_client=$1 WHERE ticket_id=$2 AND user_id=$3`,
		allowed, ticketID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanMember(row pgx.Row, member *domain.TicketMember) error {
	return row.Scan(
		&member.ID,
		&member.TicketID,
		&member.UserID,
		&member.AddedBy,
		&member.AddedAt,
		&member.CanMessageClient,
	)
}

func scanMembers(rows pgx.Rows) ([]domain.TicketMember, error) {
	var result []domain.TicketMember
	for rows.Next() {
		var member domain.TicketMember
		if err := scanMember(rows, &member); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}
