package services

import (
	"context"
	"errors"
	"fmt"

	"bookclub/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type admissionService struct {
	base
}

// NewAdmissionService creates an AdmissionService.
func NewAdmissionService(deps Deps, opts Options) domain.AdmissionService {
	return &admissionService{base: newBase(deps, opts)}
}

// Apply admits or rejects the user's application under the event's capacity.
// The decision and the insert run with the event locked, both in process and in the database,
// so concurrent applicants for the last seat cannot both be approved.
func (s *admissionService) Apply(ctx context.Context, userID, eventID string) (*domain.EventApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "admission.apply",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	unlock, err := s.Locks.Lock(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for event lock: %v", domain.ErrTransient, err)
	}
	defer unlock()

	var (
		app   *domain.EventApplication
		event *domain.Event
	)
	err = s.retry.do(ctx, func() error {
		return s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			ev, err := s.Events.GetForUpdate(ctx, eventID)
			if err != nil {
				return fmt.Errorf("lock event: %w", err)
			}
			now := s.now()
			if ev.IsCancelled {
				return domain.ErrEventCancelled
			}
			if ev.IsPast(now) {
				return domain.ErrEventClosed
			}

			if _, err := s.Applications.GetByEventAndUser(ctx, eventID, userID); err == nil {
				return domain.ErrDuplicateApplication
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("get application: %w", err)
			}

			approved, err := s.Applications.CountByEventAndStatus(ctx, eventID, domain.ApplicationStatusApproved)
			if err != nil {
				return fmt.Errorf("count approved applications: %w", err)
			}

			a := domain.NewEventApplication(eventID, userID, s.newCode(), now)
			if approved < ev.MaxParticipants {
				a.Approve(now)
			} else {
				a.Reject(domain.RejectionNoCapacity, now)
			}
			if err := s.Applications.Create(ctx, a); err != nil {
				if errors.Is(err, domain.ErrDuplicateApplication) {
					return err
				}
				return fmt.Errorf("create application: %w", err)
			}
			app, event = a, ev
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("application.status", string(app.Status)))

	details := map[string]any{"event_id": eventID, "status": string(app.Status)}
	if app.RejectionReason != nil {
		details["rejection_reason"] = string(*app.RejectionReason)
	}
	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditApplicationCreated,
		ResourceType: domain.AuditResourceApplication,
		ResourceID:   app.ID,
		ActorID:      userID,
		Details:      details,
	})

	if app.Status == domain.ApplicationStatusApproved {
		data := &domain.ApplicationApprovedEmailData{
			Email:      user.Email,
			FirstName:  user.Name,
			EventTitle: event.Title,
			EventDate:  event.Date,
			Code:       app.Code,
		}
		s.Dispatcher.Go(ctx, "email.application_approved", func(ctx context.Context) error {
			return s.Emails.SendApplicationApproved(ctx, data)
		})
	}
	return app, nil
}

// ListEventApplications returns a page of the event's applications, optionally filtered by status. Only the event's creator or an admin may list them.
func (s *admissionService) ListEventApplications(ctx context.Context, eventID string, actor domain.Actor, query domain.ApplicationListQuery) ([]*domain.EventApplication, int, error) {
	if err := query.Validate(); err != nil {
		return nil, 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	if !event.CanBeManagedBy(actor) {
		return nil, 0, domain.ErrForbidden
	}

	apps, total, err := s.Applications.ListByEventID(ctx, eventID, query)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return apps, total, nil
}

// ListMyApplications returns the user's applications with their events. Applications whose event
// has been deleted are skipped.
func (s *admissionService) ListMyApplications(ctx context.Context, userID string) ([]*domain.ApplicationWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	apps, err := s.Applications.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	if len(apps) == 0 {
		return []*domain.ApplicationWithEvent{}, nil
	}

	ids := make([]string, 0, len(apps))
	seen := make(map[string]bool, len(apps))
	for _, a := range apps {
		if !seen[a.EventID] {
			seen[a.EventID] = true
			ids = append(ids, a.EventID)
		}
	}
	events, err := s.Events.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	eventsByID := make(map[string]*domain.Event, len(events))
	for _, ev := range events {
		eventsByID[ev.ID] = ev
	}

	result := make([]*domain.ApplicationWithEvent, 0, len(apps))
	for _, a := range apps {
		ev, ok := eventsByID[a.EventID]
		if !ok {
			continue
		}
		result = append(result, &domain.ApplicationWithEvent{Application: a, Event: ev})
	}
	return result, nil
}
