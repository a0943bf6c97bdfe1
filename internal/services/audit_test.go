package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookclub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
	err     error
}

func (r *stubAuditRepo) Create(ctx context.Context, e *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func TestAuditRecorder_RecordAction(t *testing.T) {
	repo := &stubAuditRepo{}
	d := NewDispatcher(discardLogger(), time.Second)
	rec := NewAuditRecorder(repo, d).(*auditRecorder)
	rec.now = func() time.Time { return testNow }

	rec.RecordAction(context.Background(), &domain.AuditEntry{
		Action:       domain.AuditEventDeleted,
		ResourceType: domain.AuditResourceEvent,
		ResourceID:   "ev-1",
		ActorID:      "admin-1",
	})
	rec.RecordAction(context.Background(), nil)
	require.NoError(t, d.Wait(context.Background()))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, testNow, repo.entries[0].CreatedAt)
	assert.Equal(t, "ev-1", repo.entries[0].ResourceID)
}

func TestAuditRecorder_StoreFailureIsSwallowed(t *testing.T) {
	repo := &stubAuditRepo{err: errors.New("audit_log: disk full")}
	d := NewDispatcher(discardLogger(), time.Second)
	rec := NewAuditRecorder(repo, d)

	assert.NotPanics(t, func() {
		rec.RecordAction(context.Background(), &domain.AuditEntry{Action: domain.AuditBookDeleted})
	})
	require.NoError(t, d.Wait(context.Background()))
	assert.Empty(t, repo.entries)
}
