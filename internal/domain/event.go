package domain

import (
	"context"
	"time"
)

// MinScheduleLead is the minimum distance between "now" and an event's date at creation or reschedule time.
const MinScheduleLead = 24 * time.Hour

// EventType classifies a book-club event.
type EventType string

const (
	EventTypeMeeting    EventType = "MEETING"
	EventTypeReading    EventType = "READING"
	EventTypeDiscussion EventType = "DISCUSSION"
	EventTypeWorkshop   EventType = "WORKSHOP"
	EventTypeOther      EventType = "OTHER"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeMeeting, EventTypeReading, EventTypeDiscussion, EventTypeWorkshop, EventTypeOther:
		return true
	}
	return false
}

// SoftDelete holds the logical-removal columns shared by events, applications and books.
// Rows carrying IsDeleted are never physically removed.
type SoftDelete struct {
	IsDeleted   bool       `json:"is_deleted"`
	DeletedWhen *time.Time `json:"deleted_when,omitempty"`
	DeletedBy   *string    `json:"deleted_by,omitempty"`
}

// Event is a scheduled book-club event with a fixed number of seats.
// swagger:model Event
type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	EventType          EventType `json:"event_type"`
	Date               time.Time `json:"date"`
	Description        string    `json:"description"`
	BookID             *string   `json:"book_id,omitempty"`
	MaxParticipants    int       `json:"max_participants"`
	IsCancelled        bool      `json:"is_cancelled"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	SoftDelete
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(title string, eventType EventType, date time.Time, description string, bookID *string, maxParticipants int) *Event {
	return &Event{
		Title:           title,
		EventType:       eventType,
		Date:            date,
		Description:     description,
		BookID:          bookID,
		MaxParticipants: maxParticipants,
	}
}

// IsPast reports whether the event date is not after now.
func (e *Event) IsPast(now time.Time) bool {
	return !e.Date.After(now)
}

// CanBeManagedBy reports whether actor may cancel, reschedule, delete or check in attendees for the event.
func (e *Event) CanBeManagedBy(actor Actor) bool {
	return actor.IsAdmin() || (actor.ID != "" && actor.ID == e.CreatedBy)
}

// ValidateScheduleDate returns ErrInvalidDate unless date is at least MinScheduleLead after now.
func ValidateScheduleDate(date, now time.Time) error {
	if date.Before(now.Add(MinScheduleLead)) {
		return ErrInvalidDate
	}
	return nil
}

// EventSummary is an event together with its current seat usage.
type EventSummary struct {
	Event          *Event `json:"event"`
	ApprovedCount  int    `json:"approved_count"`
	AvailableSeats int    `json:"available_seats"`
}

// EventRepository defines storage operations for events. Reads never return soft-deleted rows.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// ListByIDs returns the non-deleted events among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]*Event, error)
	// GetForUpdate reads the event and locks its row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Event, error)
	MarkCancelled(ctx context.Context, id, reason string, at time.Time) error
	UpdateDate(ctx context.Context, id string, date, at time.Time) error
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error
	// CountUpcomingByBook counts non-cancelled events referencing the book with a date after now.
	CountUpcomingByBook(ctx context.Context, bookID string, now time.Time) (int, error)
}

// EventService covers event creation and the cancel/reschedule lifecycle.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event, actor Actor) error
	GetEvent(ctx context.Context, eventID string) (*EventSummary, error)
	CancelEvent(ctx context.Context, eventID, reason string, actor Actor) (*Event, error)
	RescheduleEvent(ctx context.Context, eventID string, newDate time.Time, reason string, actor Actor) (*Event, error)
}

// DeletionService guards soft deletion of events and books that still carry future commitments.
type DeletionService interface {
	CanDeleteEvent(ctx context.Context, eventID string) (bool, error)
	CanDeleteBook(ctx context.Context, bookID string) (bool, error)
	SoftDeleteEvent(ctx context.Context, eventID string, actor Actor) error
	SoftDeleteBook(ctx context.Context, bookID string, actor Actor) error
}
