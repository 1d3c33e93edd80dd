package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

const attachmentColumns = `id, name, record_type, record_id, key, filename, content_type, byte_size, checksum, url, created_at`

func scanAttachment(row pgx.Row) (*entity.Attachment, error) {
	a := &entity.Attachment{}
	if err := row.Scan(&a.ID, &a.Name, &a.RecordType, &a.RecordID, &a.Key, &a.Filename,
		&a.ContentType, &a.ByteSize, &a.Checksum, &a.URL, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// Attach replaces any attachment with the same (record, name) inside one transaction.
func (r *AttachmentRepository) Attach(ctx context.Context, a *entity.Attachment) (*entity.Attachment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	previous, err := scanAttachment(tx.QueryRow(ctx, `
		DELETE FROM attachments
		WHERE record_type = $1 AND record_id = $2 AND name = $3
		RETURNING `+attachmentColumns, a.RecordType, a.RecordID, a.Name))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO attachments (name, record_type, record_id, key, filename, content_type, byte_size, checksum, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, a.Name, a.RecordType, a.RecordID, a.Key, a.Filename, a.ContentType, a.ByteSize, a.Checksum, a.URL)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return previous, nil
}

func (r *AttachmentRepository) Get(ctx context.Context, recordType string, recordID int64, name string) (*entity.Attachment, error) {
	a, err := scanAttachment(r.pool.QueryRow(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments
		WHERE record_type = $1 AND record_id = $2 AND name = $3
	`, recordType, recordID, name))
	if err != nil {
		return nil, translate(err, nil)
	}
	return a, nil
}

func (r *AttachmentRepository) Detach(ctx context.Context, recordType string, recordID int64, name string) (*entity.Attachment, error) {
	a, err := scanAttachment(r.pool.QueryRow(ctx, `
		DELETE FROM attachments
		WHERE record_type = $1 AND record_id = $2 AND name = $3
		RETURNING `+attachmentColumns, recordType, recordID, name))
	if err != nil {
		return nil, translate(err, nil)
	}
	return a, nil
}

var _ repository.AttachmentRepository = (*AttachmentRepository)(nil)
