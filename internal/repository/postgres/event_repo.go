package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookclub/internal/domain"

	"github.com/lib/pq"
)

const eventColumns = `id, title, event_type, date, description, book_id, max_participants, is_cancelled,
	cancellation_reason, created_by, created_at, updated_at, is_deleted, deleted_when, deleted_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var eventType string
	var descNull, bookNull, reasonNull, deletedByNull sql.NullString
	var deletedWhenNull sql.NullTime
	err := row.Scan(
		&e.ID, &e.Title, &eventType, &e.Date, &descNull, &bookNull, &e.MaxParticipants, &e.IsCancelled,
		&reasonNull, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.IsDeleted, &deletedWhenNull, &deletedByNull,
	)
	if err != nil {
		return nil, err
	}
	e.EventType = domain.EventType(eventType)
	e.Description = descNull.String
	if bookNull.Valid {
		e.BookID = &bookNull.String
	}
	if reasonNull.Valid {
		e.CancellationReason = &reasonNull.String
	}
	if deletedWhenNull.Valid {
		e.DeletedWhen = &deletedWhenNull.Time
	}
	if deletedByNull.Valid {
		e.DeletedBy = &deletedByNull.String
	}
	return e, nil
}

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, event_type, date, description, book_id, max_participants, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Title, string(e.EventType), e.Date, e.Description, e.BookID, e.MaxParticipants, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND NOT is_deleted`
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1) AND NOT is_deleted`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND NOT is_deleted FOR UPDATE`
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapLockError(err)
	}
	return e, nil
}

func (r *eventRepository) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	query := `
		UPDATE events
		SET is_cancelled = TRUE, cancellation_reason = $2, updated_at = $3
		WHERE id = $1 AND NOT is_deleted
	`
	return r.execOne(ctx, query, id, reason, at)
}

func (r *eventRepository) UpdateDate(ctx context.Context, id string, date, at time.Time) error {
	query := `
		UPDATE events
		SET date = $2, updated_at = $3
		WHERE id = $1 AND NOT is_deleted
	`
	return r.execOne(ctx, query, id, date, at)
}

func (r *eventRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	query := `
		UPDATE events
		SET is_deleted = TRUE, deleted_when = $3, deleted_by = $2, updated_at = $3
		WHERE id = $1 AND NOT is_deleted
	`
	return r.execOne(ctx, query, id, deletedBy, at)
}

func (r *eventRepository) CountUpcomingByBook(ctx context.Context, bookID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM events
		WHERE book_id = $1 AND NOT is_cancelled AND NOT is_deleted AND date > $2
	`
	var n int
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, bookID, now).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// execOne runs an UPDATE expected to touch exactly one live row.
func (r *eventRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, args...)
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
