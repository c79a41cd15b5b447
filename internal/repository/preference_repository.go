package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabkit/ticketdesk/internal/domain"
)

// PreferenceRepository stores per-user notification flags. A missing row is
// not an error condition for callers: Get returns the all-enabled default.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (domain.NotificationPreference, error)
	GetByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error)
	Upsert(ctx context.Context, pref *domain.NotificationPreference) error
}

type preferenceRepository struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepository builds repository.
func NewPreferenceRepository(pool *pgxpool.Pool) PreferenceRepository {
	return &preferenceRepository{pool: pool}
}

const preferenceColumns = `user_id, chat_clients, chat_internal, status_change, ticket_creation, ticket_assigned, updated_at`

func (r *preferenceRepository) Get(ctx context.Context, userID string) (domain.NotificationPreference, error) {
	const query = `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id=$1`
	var pref domain.NotificationPreference
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&pref.UserID,
		&pref.ChatClients,
		&pref.ChatInternal,
		&pref.StatusChange,
		&pref.TicketCreation,
		&pref.TicketAssigned,
		&pref.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultPreference(userID), nil
	}
	if err != nil {
		return domain.NotificationPreference{}, err
	}
	return pref, nil
}

func (r *preferenceRepository) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error) {
	result := make(map[string]domain.NotificationPreference, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id IN (` + placeholderList(1, len(userIDs)) + `)`
	rows, err := r.pool.Query(ctx, query, stringArgs(userIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pref domain.NotificationPreference
		if err := rows.Scan(
			&pref.UserID,
			&pref.ChatClients,
			&pref.ChatInternal,
			&pref.StatusChange,
			&pref.TicketCreation,
			&pref.TicketAssigned,
			&pref.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[pref.UserID] = pref
	}
	return result, rows.Err()
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *domain.NotificationPreference) error {
	const query = `
        INSERT INTO notification_preferences (user_id, chat_clients, chat_internal, status_change, ticket_creation, ticket_assigned)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id) DO UPDATE SET
            chat_clients=EXCLUDED.chat_clients,
            chat_internal=EXCLUDED.chat_internal,
            status_change=EXCLUDED.status_change,
            ticket_creation=EXCLUDED.ticket_creation,
            ticket_assigned=EXCLUDED.ticket_assigned,
            updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		pref.UserID,
		pref.ChatClients,
		pref.ChatInternal,
		pref.StatusChange,
		pref.TicketCreation,
		pref.TicketAssigned,
	).Scan(&pref.UpdatedAt)
}
