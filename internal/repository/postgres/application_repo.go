package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookclub/internal/domain"
)

const applicationColumns = `a.id, a.code, a.user_id, a.event_id, a.status, a.rejection_reason, a.attended,
	a.created_at, a.updated_at, a.is_deleted, a.deleted_when, a.deleted_by`

// scanApplication scans applicationColumns followed by any extra destinations.
func scanApplication(row rowScanner, extra ...any) (*domain.EventApplication, error) {
	app := &domain.EventApplication{}
	var status string
	var reasonNull, deletedByNull sql.NullString
	var attendedNull sql.NullBool
	var deletedWhenNull sql.NullTime
	dest := []any{
		&app.ID, &app.Code, &app.UserID, &app.EventID, &status, &reasonNull, &attendedNull,
		&app.CreatedAt, &app.UpdatedAt, &app.IsDeleted, &deletedWhenNull, &deletedByNull,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	app.Status = domain.ApplicationStatus(status)
	if reasonNull.Valid {
		reason := domain.RejectionReason(reasonNull.String)
		app.RejectionReason = &reason
	}
	if attendedNull.Valid {
		app.Attended = &attendedNull.Bool
	}
	if deletedWhenNull.Valid {
		app.DeletedWhen = &deletedWhenNull.Time
	}
	if deletedByNull.Valid {
		app.DeletedBy = &deletedByNull.String
	}
	return app, nil
}

type applicationRepository struct {
	DB *sql.DB
}

func NewApplicationRepository(db *sql.DB) domain.ApplicationRepository {
	return &applicationRepository{
		DB: db,
	}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.EventApplication) error {
	query := `
		INSERT INTO event_applications (code, user_id, event_id, status, rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var reason *string
	if app.RejectionReason != nil {
		s := string(*app.RejectionReason)
		reason = &s
	}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		app.Code, app.UserID, app.EventID, string(app.Status), reason, app.CreatedAt, app.UpdatedAt,
	).Scan(&app.ID)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return domain.ErrDuplicateApplication
		}
		return mapLockError(err)
	}
	return nil
}

func (r *applicationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM event_applications a
		WHERE a.event_id = $1 AND a.user_id = $2 AND NOT a.is_deleted`
	return r.getOne(ctx, query, eventID, userID)
}

func (r *applicationRepository) GetByCode(ctx context.Context, code string) (*domain.EventApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM event_applications a
		WHERE a.code = $1 AND NOT a.is_deleted`
	return r.getOne(ctx, query, code)
}

func (r *applicationRepository) getOne(ctx context.Context, query string, args ...any) (*domain.EventApplication, error) {
	app, err := scanApplication(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

func (r *applicationRepository) CountByEventAndStatus(ctx context.Context, eventID string, status domain.ApplicationStatus) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM event_applications
		WHERE event_id = $1 AND status = $2 AND NOT is_deleted
	`
	var n int
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, eventID, string(status)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *applicationRepository) ListApplicantsByEventAndStatus(ctx context.Context, eventID string, status domain.ApplicationStatus) ([]*domain.Applicant, error) {
	query := `SELECT ` + applicationColumns + `, u.email, u.name
		FROM event_applications a
		JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1 AND a.status = $2 AND NOT a.is_deleted
		ORDER BY a.created_at, a.id`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applicants := []*domain.Applicant{}
	for rows.Next() {
		a := &domain.Applicant{}
		app, err := scanApplication(rows, &a.Email, &a.Name)
		if err != nil {
			return nil, err
		}
		a.Application = app
		applicants = append(applicants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applicants, nil
}

func (r *applicationRepository) RejectApproved(ctx context.Context, eventID string, reason domain.RejectionReason, at time.Time) (int, error) {
	query := `
		UPDATE event_applications
		SET status = 'REJECTED', rejection_reason = $2, updated_at = $3
		WHERE event_id = $1 AND status = 'APPROVED' AND NOT is_deleted
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, eventID, string(reason), at)
	if err != nil {
		return 0, mapLockError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *applicationRepository) ListByEventID(ctx context.Context, eventID string, query domain.ApplicationListQuery) ([]*domain.EventApplication, int, error) {
	q := conn(ctx, r.DB)
	where := `a.event_id = $1 AND NOT a.is_deleted`
	args := []any{eventID}
	if query.Status != "" {
		args = append(args, string(query.Status))
		where += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM event_applications a WHERE ` + where
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `a.created_at, a.id`
	if query.Order == domain.OrderAppliedDesc {
		order = `a.created_at DESC, a.id DESC`
	}
	listQuery := fmt.Sprintf(`SELECT %s
		FROM event_applications a
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, applicationColumns, where, order, len(args)+1, len(args)+2)
	rows, err := q.QueryContext(ctx, listQuery, append(args, query.Limit(), query.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps, err := collectApplications(rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *applicationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.EventApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM event_applications a
		WHERE a.user_id = $1 AND NOT a.is_deleted
		ORDER BY a.created_at DESC`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

func collectApplications(rows *sql.Rows) ([]*domain.EventApplication, error) {
	apps := []*domain.EventApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepository) SetAttended(ctx context.Context, id string, attended bool, at time.Time) error {
	query := `
		UPDATE event_applications
		SET attended = $2, updated_at = $3
		WHERE id = $1 AND NOT is_deleted
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, id, attended, at)
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

func (r *applicationRepository) MarkUnattendedBefore(ctx context.Context, cutoff, at time.Time) (int, error) {
	query := `
		UPDATE event_applications a
		SET attended = FALSE, updated_at = $2
		FROM events e
		WHERE e.id = a.event_id
			AND e.date < $1
			AND NOT e.is_cancelled
			AND a.status = 'APPROVED'
			AND a.attended IS NULL
			AND NOT a.is_deleted
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, cutoff, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
