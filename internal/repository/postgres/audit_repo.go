package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bookclub/internal/domain"
)

type auditRepository struct {
	DB *sql.DB
}

// NewAuditRepository returns an AuditRepository. Writes always go straight to db and never join
// a caller's transaction, so a rolled back operation cannot take its audit trail with it and a
// failed audit insert cannot abort the operation.
func NewAuditRepository(db *sql.DB) domain.AuditRepository {
	return &auditRepository{DB: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	// details stays an untyped nil, stored as NULL, when the entry has none.
	var details any
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = b
	}
	query := `
		INSERT INTO audit_log (action, resource_type, resource_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		string(entry.Action), entry.ResourceType, entry.ResourceID, entry.ActorID, details, entry.CreatedAt,
	).Scan(&entry.ID)
}
