package domain

import (
	"context"
	"fmt"
	"time"
)

// ApplicationStatus is the admission state of an EventApplication.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// RejectionReason explains why an application is REJECTED.
type RejectionReason string

const (
	RejectionNoCapacity     RejectionReason = "NO_CAPACITY"
	RejectionEventCancelled RejectionReason = "EVENT_CANCELLED"
	RejectionOther          RejectionReason = "OTHER"
)

// EventApplication is a user's request for a seat at an event.
// Attended is nil until the user checks in (true) or the attendance sweep marks them absent (false).
// swagger:model EventApplication
type EventApplication struct {
	ID              string            `json:"id"`
	Code            string            `json:"code"`
	UserID          string            `json:"user_id"`
	EventID         string            `json:"event_id"`
	Status          ApplicationStatus `json:"status"`
	RejectionReason *RejectionReason  `json:"rejection_reason,omitempty"`
	Attended        *bool             `json:"attended,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	SoftDelete
}

// NewEventApplication creates a PENDING application. ID is typically set by the repository on create.
func NewEventApplication(eventID, userID, code string, createdAt time.Time) *EventApplication {
	return &EventApplication{
		Code:      code,
		UserID:    userID,
		EventID:   eventID,
		Status:    ApplicationStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Approve grants the application a seat.
func (a *EventApplication) Approve(at time.Time) {
	a.Status = ApplicationStatusApproved
	a.RejectionReason = nil
	a.UpdatedAt = at
}

// Reject denies the application for the given reason.
func (a *EventApplication) Reject(reason RejectionReason, at time.Time) {
	r := reason
	a.Status = ApplicationStatusRejected
	a.RejectionReason = &r
	a.UpdatedAt = at
}

// Applicant bundles an application with the contact details of its user, for notifications.
type Applicant struct {
	Application *EventApplication
	Email       string
	Name        string
}

// ApplicationWithEvent bundles an application with its related event.
type ApplicationWithEvent struct {
	Application *EventApplication `json:"application"`
	Event       *Event            `json:"event"`
}

// ApplicationOrder sorts an event's application list by application time.
type ApplicationOrder string

const (
	// OrderAppliedAsc lists applications in admission order. It is the default.
	OrderAppliedAsc  ApplicationOrder = "applied_at"
	OrderAppliedDesc ApplicationOrder = "-applied_at"
)

func (o ApplicationOrder) Valid() bool {
	return o == OrderAppliedAsc || o == OrderAppliedDesc
}

// ApplicationListQuery selects a page of an event's applications.
// An empty Status matches every status and an empty Order means OrderAppliedAsc.
type ApplicationListQuery struct {
	PaginationParams
	Status ApplicationStatus
	Order  ApplicationOrder
}

// Validate returns ErrInvalidInput for an unknown status or order.
func (q ApplicationListQuery) Validate() error {
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("%w: status must be one of PENDING, APPROVED, REJECTED", ErrInvalidInput)
	}
	if q.Order != "" && !q.Order.Valid() {
		return fmt.Errorf("%w: sort must be %s or %s", ErrInvalidInput, OrderAppliedAsc, OrderAppliedDesc)
	}
	return nil
}

// ApplicationRepository defines storage operations for event applications. Reads never return soft-deleted rows.
type ApplicationRepository interface {
	// Create inserts the application. Returns ErrDuplicateApplication if the user already holds one for the event.
	Create(ctx context.Context, app *EventApplication) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*EventApplication, error)
	GetByCode(ctx context.Context, code string) (*EventApplication, error)
	CountByEventAndStatus(ctx context.Context, eventID string, status ApplicationStatus) (int, error)
	ListApplicantsByEventAndStatus(ctx context.Context, eventID string, status ApplicationStatus) ([]*Applicant, error)
	// RejectApproved moves every APPROVED application of the event to REJECTED with reason and returns how many changed.
	RejectApproved(ctx context.Context, eventID string, reason RejectionReason, at time.Time) (int, error)
	ListByEventID(ctx context.Context, eventID string, query ApplicationListQuery) ([]*EventApplication, int, error)
	ListByUserID(ctx context.Context, userID string) ([]*EventApplication, error)
	SetAttended(ctx context.Context, id string, attended bool, at time.Time) error
	// MarkUnattendedBefore sets attended=false on APPROVED applications with unknown attendance
	// whose non-cancelled event date is before the cutoff.
	MarkUnattendedBefore(ctx context.Context, cutoff, at time.Time) (int, error)
}

// AdmissionService decides and records applications under the capacity constraint.
type AdmissionService interface {
	// Apply creates the user's application for the event as APPROVED or REJECTED/NO_CAPACITY.
	Apply(ctx context.Context, userID, eventID string) (*EventApplication, error)
	ListEventApplications(ctx context.Context, eventID string, actor Actor, query ApplicationListQuery) ([]*EventApplication, int, error)
	ListMyApplications(ctx context.Context, userID string) ([]*ApplicationWithEvent, error)
}

// AttendanceService records check-ins and closes attendance for past events.
type AttendanceService interface {
	MarkAttended(ctx context.Context, code string, actor Actor) (*EventApplication, error)
	SweepUnattended(ctx context.Context, now time.Time) (int, error)
}
