package services

import (
	"context"
	"fmt"
	"time"

	"bookclub/internal/domain"
)

type auditRecorder struct {
	repo       domain.AuditRepository
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewAuditRecorder returns an AuditRecorder that writes entries through repo on the dispatcher,
// so a slow or failing audit store never blocks or fails the calling operation.
func NewAuditRecorder(repo domain.AuditRepository, dispatcher *Dispatcher) domain.AuditRecorder {
	return &auditRecorder{repo: repo, dispatcher: dispatcher, now: time.Now}
}

func (r *auditRecorder) RecordAction(ctx context.Context, entry *domain.AuditEntry) {
	if entry == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	r.dispatcher.Go(ctx, "audit."+string(entry.Action), func(ctx context.Context) error {
		if err := r.repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("record %s on %s %s: %w", entry.Action, entry.ResourceType, entry.ResourceID, err)
		}
		return nil
	})
}
