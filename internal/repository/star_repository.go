package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StarRepository tracks per-user ticket stars.
type StarRepository interface {
	Star(ctx context.Context, ticketID, userID string) error
	Unstar(ctx context.Context, ticketID, userID string) error
	// StarredSet returns which of the given tickets the user starred.
	StarredSet(ctx context.Context, userID string, ticketIDs []string) (map[string]bool, error)
}

type starRepository struct {
	pool *pgxpool.Pool
}

// NewStarRepository builds repository.
func NewStarRepository(pool *pgxpool.Pool) StarRepository {
	return &starRepository{pool: pool}
}

func (r *starRepository) Star(ctx context.Context, ticketID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ticket_stars (ticket_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		ticketID, userID)
	return err
}

func (r *starRepository) Unstar(ctx context.Context, ticketID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM ticket_stars WHERE ticket_id=$1 AND user_id=$2`,
		ticketID, userID)
	return err
}

func (r *starRepository) StarredSet(ctx context.Context, userID string, ticketIDs []string) (map[string]bool, error) {
	if len(ticketIDs) == 0 {
		return map[string]bool{}, nil
	}
	query := `SELECT ticket_id FROM ticket_stars WHERE user_id=$1 AND ticket_id IN (` + placeholderList(2, len(ticketIDs)) + `)`
	args := append([]any{userID}, stringArgs(ticketIDs)...)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	starred := make(map[string]bool, len(ticketIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		starred[id] = true
	}
	return starred, rows.Err()
}
