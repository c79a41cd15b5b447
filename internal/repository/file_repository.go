package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabkit/ticketdesk/internal/domain"
)

const fileColumns = `id, ticket_id, file_name, file_url, object_path, mime_type, size_bytes, uploaded_by, created_at`

// FileRepository records blob metadata for ticket attachments.
type FileRepository interface {
	Create(ctx context.Context, file *domain.TicketFile) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketFile, error)
	ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketFile, error)
}

type fileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository builds repository.
func NewFileRepository(pool *pgxpool.Pool) FileRepository {
	return &fileRepository{pool: pool}
}

func (r *fileRepository) Create(ctx context.Context, file *domain.TicketFile) error {
	const query = `
        INSERT INTO ticket_files (ticket_id, file_name, file_url, object_path, mime_type, size_bytes, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		file.TicketID,
		file.FileName,
		file.FileURL,
		file.ObjectPath,
		file.MimeType,
		file.SizeBytes,
		file.UploadedBy,
	).Scan(&file.ID, &file.CreatedAt)
}

func (r *fileRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketFile, error) {
	const query = `SELECT ` + fileColumns + ` FROM ticket_files WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

func (r *fileRepository) ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketFile, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + fileColumns + ` FROM ticket_files WHERE ticket_id IN (` + placeholderList(1, len(ticketIDs)) + `)`
	rows, err := r.pool.Query(ctx, query, stringArgs(ticketIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

func scanFiles(rows pgx.Rows) ([]domain.TicketFile, error) {
	var result []domain.TicketFile
	for rows.Next() {
		var file domain.TicketFile
		if err := rows.Scan(
			&file.ID,
			&file.TicketID,
			&file.FileName,
			&file.FileURL,
			&file.ObjectPath,
			&file.MimeType,
			&file.SizeBytes,
			&file.UploadedBy,
			&file.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	return result, rows.Err()
}
