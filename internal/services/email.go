package services

import (
	"context"
	"fmt"
	"log/slog"

	"bookclub/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendApplicationApproved confirms a granted seat using the "application_approved" template.
func (s *emailService) SendApplicationApproved(ctx context.Context, data *domain.ApplicationApprovedEmailData) error {
	if data == nil {
		return fmt.Errorf("application approved data is nil")
	}
	return s.send(ctx, "application_approved", data.Email, data)
}

// SendEventCancelled notifies an applicant that the event was cancelled, with the reason.
func (s *emailService) SendEventCancelled(ctx context.Context, data *domain.EventCancelledEmailData) error {
	if data == nil {
		return fmt.Errorf("event cancelled data is nil")
	}
	return s.send(ctx, "event_cancelled", data.Email, data)
}

// SendEventRescheduled notifies an applicant of the old and new date and the reason.
func (s *emailService) SendEventRescheduled(ctx context.Context, data *domain.EventRescheduledEmailData) error {
	if data == nil {
		return fmt.Errorf("event rescheduled data is nil")
	}
	return s.send(ctx, "event_rescheduled", data.Email, data)
}

func (s *emailService) send(ctx context.Context, template, to string, data any) error {
	if to == "" {
		return fmt.Errorf("%s email has no recipient", template)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", template, "to", to)
	return nil
}
