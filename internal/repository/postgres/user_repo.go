package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bookclub/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, name, last_name, created_at, updated_at
		FROM users
		WHERE id = $1 AND NOT is_deleted
	`
	u := &domain.User{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
