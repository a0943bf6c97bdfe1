package domain

import (
	"context"
	"time"
)

// AuditAction names a state change recorded in the audit log.
type AuditAction string

const (
	AuditApplicationCreated  AuditAction = "APPLICATION_CREATED"
	AuditApplicationAttended AuditAction = "APPLICATION_ATTENDED"
	AuditEventCreated        AuditAction = "EVENT_CREATED"
	AuditEventCancelled      AuditAction = "EVENT_CANCELLED"
	AuditEventRescheduled    AuditAction = "EVENT_RESCHEDULED"
	AuditEventDeleted        AuditAction = "EVENT_DELETED"
	AuditBookDeleted         AuditAction = "BOOK_DELETED"
)

// Audit resource types.
const (
	AuditResourceEvent       = "event"
	AuditResourceApplication = "application"
	AuditResourceBook        = "book"
)

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	ActorID      string         `json:"actor_id"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *AuditEntry) error
}

// AuditRecorder records an action without affecting the outcome of the operation that produced it.
// Failures are logged by the implementation and never returned.
type AuditRecorder interface {
	RecordAction(ctx context.Context, entry *AuditEntry)
}
