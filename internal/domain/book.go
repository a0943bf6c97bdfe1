package domain

import (
	"context"
	"time"
)

// Book is a title the club reads. Events may reference a book.
// swagger:model Book
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SoftDelete
}

// BookRepository defines storage operations for books. Reads never return soft-deleted rows.
type BookRepository interface {
	GetByID(ctx context.Context, id string) (*Book, error)
	GetForUpdate(ctx context.Context, id string) (*Book, error)
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error
}
