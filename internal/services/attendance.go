package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookclub/internal/domain"
)

type attendanceService struct {
	base
}

// NewAttendanceService creates an AttendanceService.
func NewAttendanceService(deps Deps, opts Options) domain.AttendanceService {
	return &attendanceService{base: newBase(deps, opts)}
}

// MarkAttended checks in the holder of an application code. Only the event's creator or an admin may check people in.
func (s *attendanceService) MarkAttended(ctx context.Context, code string, actor domain.Actor) (*domain.EventApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	app, err := s.Applications.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	event, err := s.Events.GetByID(ctx, app.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.CanBeManagedBy(actor) {
		return nil, domain.ErrForbidden
	}
	if app.Status != domain.ApplicationStatusApproved {
		return nil, domain.ErrInvalidInput
	}

	now := s.now()
	if err := s.Applications.SetAttended(ctx, app.ID, true, now); err != nil {
		return nil, fmt.Errorf("set attended: %w", err)
	}
	attended := true
	app.Attended = &attended
	app.UpdatedAt = now

	s.Audit.RecordAction(ctx, &domain.AuditEntry{
		Action:       domain.AuditApplicationAttended,
		ResourceType: domain.AuditResourceApplication,
		ResourceID:   app.ID,
		ActorID:      actor.ID,
		Details:      map[string]any{"event_id": app.EventID},
	})
	return app, nil
}

// SweepUnattended marks approved applications of past events that were never checked in as not attended.
func (s *attendanceService) SweepUnattended(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.Applications.MarkUnattendedBefore(ctx, now, now)
	if err != nil {
		return 0, fmt.Errorf("mark unattended: %w", err)
	}
	return n, nil
}
