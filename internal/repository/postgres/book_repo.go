package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookclub/internal/domain"
)

type bookRepository struct {
	DB *sql.DB
}

func NewBookRepository(db *sql.DB) domain.BookRepository {
	return &bookRepository{DB: db}
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	return r.get(ctx, `
		SELECT id, title, author, created_at, updated_at, is_deleted
		FROM books
		WHERE id = $1 AND NOT is_deleted
	`, id)
}

func (r *bookRepository) GetForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	b, err := r.get(ctx, `
		SELECT id, title, author, created_at, updated_at, is_deleted
		FROM books
		WHERE id = $1 AND NOT is_deleted
		FOR UPDATE
	`, id)
	if err != nil {
		return nil, mapLockError(err)
	}
	return b, nil
}

func (r *bookRepository) get(ctx context.Context, query, id string) (*domain.Book, error) {
	b := &domain.Book{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.CreatedAt, &b.UpdatedAt, &b.IsDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *bookRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	query := `
		UPDATE books
		SET is_deleted = TRUE, deleted_when = $3, deleted_by = $2, updated_at = $3
		WHERE id = $1 AND NOT is_deleted
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, id, deletedBy, at)
	if err != nil {
		return mapLockError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
