package domain

import "context"

// Transactor runs fn inside a single storage transaction. Repository calls made with the
// context passed to fn join that transaction. The transaction commits when fn returns nil
// and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
