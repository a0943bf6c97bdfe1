package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ApplicationApprovedEmailData holds data for the seat confirmation email.
type ApplicationApprovedEmailData struct {
	Email      string
	FirstName  string
	EventTitle string
	EventDate  time.Time
	Code       string
}

// EventCancelledEmailData holds data for the cancellation notice sent to every applicant.
type EventCancelledEmailData struct {
	Email      string
	FirstName  string
	EventTitle string
	EventDate  time.Time
	Reason     string
}

// EventRescheduledEmailData holds data for the date change notice sent to approved applicants.
type EventRescheduledEmailData struct {
	Email      string
	FirstName  string
	EventTitle string
	OldDate    time.Time
	NewDate    time.Time
	Reason     string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendApplicationApproved(ctx context.Context, data *ApplicationApprovedEmailData) error
	SendEventCancelled(ctx context.Context, data *EventCancelledEmailData) error
	SendEventRescheduled(ctx context.Context, data *EventRescheduledEmailData) error
}
