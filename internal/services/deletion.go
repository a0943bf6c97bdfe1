package services

import (
	"context"
	"errors"
	"fmt"

	"bookclub/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type deletionService struct {
	base
}

// NewDeletionService creates a DeletionService.
func NewDeletionService(deps Deps, opts Options) domain.DeletionService {
	return &deletionService{base: newBase(deps, opts)}
}

// eventDeleteBlock returns the reason the event may not be deleted, or "" when it may.
// An event is held by approved applications only while its date is in the future.
func (s *deletionService) eventDeleteBlock(ctx context.Context, event *domain.Event) (string, error) {
	if event.IsPast(s.now()) {
		return "", nil
	}
	approved, err := s.Applications.CountByEventAndStatus(ctx, event.ID, domain.ApplicationStatusApproved)
	if err != nil {
		return "", fmt.Errorf("count approved applications: %w", err)
	}
	if approved > 0 {
		return fmt.Sprintf("event has %d approved participant(s) and has not taken place yet; cancel it first", approved), nil
	}
	return "", nil
}

// bookDeleteBlock returns the reason the book may not be deleted, or "" when it may.
func (s *deletionService) bookDeleteBlock(ctx context.Context, bookID string) (string, error) {
	upcoming, err := s.Events.CountUpcomingByBook(ctx, bookID, s.now())
	if err != nil {
		return "", fmt.Errorf("count upcoming events: %w", err)
	}
	if upcoming > 0 {
		return fmt.Sprintf("book is referenced by %d upcoming event(s)", upcoming), nil
	}
	return "", nil
}

func (s *deletionService) CanDeleteEvent(ctx context.Context, eventID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("get event: %w", err)
	}
	reason, err := s.eventDeleteBlock(ctx, event)
	if err != nil {
		return false, err
	}
	return reason == "", nil
}

func (s *deletionService) CanDeleteBook(ctx context.Context, bookID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.Books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("get book: %w", err)
	}
	reason, err := s.bookDeleteBlock(ctx, bookID)
	if err != nil {
		return false, err
	}
	return reason == "", nil
}

// SoftDeleteEvent marks the event deleted when the guard allows it. The guard is evaluated with the
// event locked so that no application can be approved between the check and the delete.
func (s *deletionService) SoftDeleteEvent(ctx context.Context, eventID string, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "deletion.soft_delete_event",
		trace.WithAttributes(attribute.String("event.id", eventID), attribute.String("actor.id", actor.ID)),
	)
	defer span.End()

	unlock, err := s.Locks.Lock(ctx, eventID)
	if err != nil {
		return fmt.Errorf("%w: wait for event lock: %v", domain.ErrTransient, err)
	}
	defer unlock()

	err = s.retry.do(ctx, func() error {
		return s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			event, err := s.Events.GetForUpdate(ctx, eventID)
			if err != nil {
				return fmt.Errorf("lock event: %w", err)
			}
			if !event.CanBeManagedBy(actor) {
				return domain.ErrForbidden
			}
			reason, err := s.eventDeleteBlock(ctx, event)
			if err != nil {
				return err
			}
			if reason != "" {
				return &domain.DeleteBlockedError{Reason: reason}
			}
			if err := s.Events.SoftDelete(ctx, eventID, actor.ID, s.now()); err != nil {
				return fmt.Errorf("soft delete event: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditEventDeleted,
		ResourceType: domain.AuditResourceEvent,
		ResourceID:   eventID,
		ActorID:      actor.ID,
	})
	return nil
}

// SoftDeleteBook marks the book deleted when no upcoming, non-cancelled event references it. Admin only.
func (s *deletionService) SoftDeleteBook(ctx context.Context, bookID string, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	err := s.retry.do(ctx, func() error {
		return s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.Books.GetForUpdate(ctx, bookID); err != nil {
				return fmt.Errorf("lock book: %w", err)
			}
			reason, err := s.bookDeleteBlock(ctx, bookID)
			if err != nil {
				return err
			}
			if reason != "" {
				return &domain.DeleteBlockedError{Reason: reason}
			}
			if err := s.Books.SoftDelete(ctx, bookID, actor.ID, s.now()); err != nil {
				return fmt.Errorf("soft delete book: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditBookDeleted,
		ResourceType: domain.AuditResourceBook,
		ResourceID:   bookID,
		ActorID:      actor.ID,
	})
	return nil
}
