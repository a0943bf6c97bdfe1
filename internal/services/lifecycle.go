package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookclub/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type eventService struct {
	base
}

// NewEventService creates an EventService covering event creation, cancellation and rescheduling.
func NewEventService(deps Deps, opts Options) domain.EventService {
	return &eventService{base: newBase(deps, opts)}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.CanOrganize() {
		return domain.ErrForbidden
	}
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" || event.MaxParticipants <= 0 {
		return domain.ErrInvalidInput
	}
	if event.EventType == "" {
		event.EventType = domain.EventTypeOther
	}
	if !event.EventType.Valid() {
		return domain.ErrInvalidInput
	}
	now := s.now()
	if err := domain.ValidateScheduleDate(event.Date, now); err != nil {
		return err
	}

	event.CreatedBy = actor.ID
	event.CreatedAt = now
	event.UpdatedAt = now
	event.IsCancelled = false
	event.CancellationReason = nil
	event.SoftDelete = domain.SoftDelete{}

	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if event.BookID != nil {
			// Locking the book keeps a concurrent SoftDeleteBook from missing this event.
			if _, err := s.Books.GetForUpdate(ctx, *event.BookID); err != nil {
				return fmt.Errorf("get book: %w", err)
			}
		}
		if err := s.Events.Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditEventCreated,
		ResourceType: domain.AuditResourceEvent,
		ResourceID:   event.ID,
		ActorID:      actor.ID,
		Details:      map[string]any{"title": event.Title, "max_participants": event.MaxParticipants},
	})
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.EventSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	approved, err := s.Applications.CountByEventAndStatus(ctx, eventID, domain.ApplicationStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("count approved applications: %w", err)
	}
	return &domain.EventSummary{
		Event:          event,
		ApprovedCount:  approved,
		AvailableSeats: max(event.MaxParticipants-approved, 0),
	}, nil
}

// CancelEvent cancels the event and rejects every approved application with EVENT_CANCELLED in one
// transaction, then notifies each affected applicant. Cancelling an already cancelled event changes
// nothing and sends nothing.
func (s *eventService) CancelEvent(ctx context.Context, eventID, reason string, actor domain.Actor) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "lifecycle.cancel",
		trace.WithAttributes(attribute.String("event.id", eventID), attribute.String("actor.id", actor.ID)),
	)
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidInput
	}

	unlock, err := s.Locks.Lock(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for event lock: %v", domain.ErrTransient, err)
	}
	defer unlock()

	var (
		event    *domain.Event
		affected []*domain.Applicant
		changed  bool
	)
	err = s.retry.do(ctx, func() error {
		event, affected, changed = nil, nil, false
		return s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			ev, err := s.Events.GetForUpdate(ctx, eventID)
			if err != nil {
				return fmt.Errorf("lock event: %w", err)
			}
			if !ev.CanBeManagedBy(actor) {
				return domain.ErrForbidden
			}
			if ev.IsCancelled {
				event = ev
				return nil
			}

			applicants, err := s.Applications.ListApplicantsByEventAndStatus(ctx, eventID, domain.ApplicationStatusApproved)
			if err != nil {
				return fmt.Errorf("list approved applicants: %w", err)
			}
			now := s.now()
			if err := s.Events.MarkCancelled(ctx, eventID, reason, now); err != nil {
				return fmt.Errorf("mark event cancelled: %w", err)
			}
			if _, err := s.Applications.RejectApproved(ctx, eventID, domain.RejectionEventCancelled, now); err != nil {
				return fmt.Errorf("reject approved applications: %w", err)
			}

			ev.IsCancelled = true
			ev.CancellationReason = &reason
			ev.UpdatedAt = now
			for _, a := range applicants {
				a.Application.Reject(domain.RejectionEventCancelled, now)
			}
			event, affected, changed = ev, applicants, true
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !changed {
		s.Logger.InfoContext(ctx, "event already cancelled", "event_id", eventID)
		return event, nil
	}
	span.SetAttributes(attribute.Int("applications.rejected", len(affected)))

	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditEventCancelled,
		ResourceType: domain.AuditResourceEvent,
		ResourceID:   eventID,
		ActorID:      actor.ID,
		Details:      map[string]any{"reason": reason, "rejected_applications": len(affected)},
	})
	for _, a := range affected {
		data := &domain.EventCancelledEmailData{
			Email:      a.Email,
			FirstName:  a.Name,
			EventTitle: event.Title,
			EventDate:  event.Date,
			Reason:     reason,
		}
		s.Dispatcher.Go(ctx, "email.event_cancelled", func(ctx context.Context) error {
			return s.Emails.SendEventCancelled(ctx, data)
		})
	}
	return event, nil
}

// RescheduleEvent moves the event to newDate and notifies every approved applicant. Application
// statuses are left untouched.
func (s *eventService) RescheduleEvent(ctx context.Context, eventID string, newDate time.Time, reason string, actor domain.Actor) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "lifecycle.reschedule",
		trace.WithAttributes(attribute.String("event.id", eventID), attribute.String("actor.id", actor.ID)),
	)
	defer span.End()

	reason = strings.TrimSpace(reason)

	unlock, err := s.Locks.Lock(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for event lock: %v", domain.ErrTransient, err)
	}
	defer unlock()

	var (
		event      *domain.Event
		oldDate    time.Time
		applicants []*domain.Applicant
	)
	err = s.retry.do(ctx, func() error {
		return s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			ev, err := s.Events.GetForUpdate(ctx, eventID)
			if err != nil {
				return fmt.Errorf("lock event: %w", err)
			}
			if !ev.CanBeManagedBy(actor) {
				return domain.ErrForbidden
			}
			if ev.IsCancelled {
				return domain.ErrEventCancelled
			}
			now := s.now()
			if err := domain.ValidateScheduleDate(newDate, now); err != nil {
				return err
			}

			approved, err := s.Applications.ListApplicantsByEventAndStatus(ctx, eventID, domain.ApplicationStatusApproved)
			if err != nil {
				return fmt.Errorf("list approved applicants: %w", err)
			}
			if err := s.Events.UpdateDate(ctx, eventID, newDate, now); err != nil {
				return fmt.Errorf("update event date: %w", err)
			}

			oldDate = ev.Date
			ev.Date = newDate
			ev.UpdatedAt = now
			event, applicants = ev, approved
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditEventRescheduled,
		ResourceType: domain.AuditResourceEvent,
		ResourceID:   eventID,
		ActorID:      actor.ID,
		Details: map[string]any{
			"old_date": oldDate.UTC().Format(time.RFC3339),
			"new_date": newDate.UTC().Format(time.RFC3339),
			"reason":   reason,
		},
	})
	for _, a := range applicants {
		data := &domain.EventRescheduledEmailData{
			Email:      a.Email,
			FirstName:  a.Name,
			EventTitle: event.Title,
			OldDate:    oldDate,
			NewDate:    newDate,
			Reason:     reason,
		}
		s.Dispatcher.Go(ctx, "email.event_rescheduled", func(ctx context.Context) error {
			return s.Emails.SendEventRescheduled(ctx, data)
		})
	}
	return event, nil
}
