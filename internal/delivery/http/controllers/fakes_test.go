package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookclub/internal/delivery/http/helpers"
	"bookclub/internal/delivery/http/middleware"
	"bookclub/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	organizer = domain.Actor{ID: "org-1", Roles: []string{domain.RoleOrganizer}}
	member    = domain.Actor{ID: "member-1", Roles: []string{domain.RoleMember}}
)

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err             error
	summary         *domain.EventSummary
	event           *domain.Event
	lastCreated     *domain.Event
	lastActor       domain.Actor
	lastEventID     string
	lastReason      string
	lastRescheduled time.Time
}

func (f *fakeEventService) CreateEvent(ctx context.Context, event *domain.Event, actor domain.Actor) error {
	f.lastCreated, f.lastActor = event, actor
	if f.err != nil {
		return f.err
	}
	event.ID = "ev-new"
	event.CreatedBy = actor.ID
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID string) (*domain.EventSummary, error) {
	f.lastEventID = eventID
	return f.summary, f.err
}

func (f *fakeEventService) CancelEvent(ctx context.Context, eventID, reason string, actor domain.Actor) (*domain.Event, error) {
	f.lastEventID, f.lastReason, f.lastActor = eventID, reason, actor
	return f.event, f.err
}

func (f *fakeEventService) RescheduleEvent(ctx context.Context, eventID string, newDate time.Time, reason string, actor domain.Actor) (*domain.Event, error) {
	f.lastEventID, f.lastReason, f.lastActor, f.lastRescheduled = eventID, reason, actor, newDate
	return f.event, f.err
}

// fakeDeletionService implements domain.DeletionService for handler tests.
type fakeDeletionService struct {
	deletable bool
	err       error
	lastID    string
	lastActor domain.Actor
}

func (f *fakeDeletionService) CanDeleteEvent(ctx context.Context, eventID string) (bool, error) {
	f.lastID = eventID
	return f.deletable, f.err
}

func (f *fakeDeletionService) CanDeleteBook(ctx context.Context, bookID string) (bool, error) {
	f.lastID = bookID
	return f.deletable, f.err
}

func (f *fakeDeletionService) SoftDeleteEvent(ctx context.Context, eventID string, actor domain.Actor) error {
	f.lastID, f.lastActor = eventID, actor
	return f.err
}

func (f *fakeDeletionService) SoftDeleteBook(ctx context.Context, bookID string, actor domain.Actor) error {
	f.lastID, f.lastActor = bookID, actor
	return f.err
}

// fakeAdmissionService implements domain.AdmissionService for handler tests.
type fakeAdmissionService struct {
	app         *domain.EventApplication
	list        []*domain.EventApplication
	total       int
	mine        []*domain.ApplicationWithEvent
	err         error
	lastUserID  string
	lastEventID string
	lastQuery   domain.ApplicationListQuery
}

func (f *fakeAdmissionService) Apply(ctx context.Context, userID, eventID string) (*domain.EventApplication, error) {
	f.lastUserID, f.lastEventID = userID, eventID
	return f.app, f.err
}

func (f *fakeAdmissionService) ListEventApplications(ctx context.Context, eventID string, actor domain.Actor, query domain.ApplicationListQuery) ([]*domain.EventApplication, int, error) {
	f.lastEventID, f.lastQuery = eventID, query
	return f.list, f.total, f.err
}

func (f *fakeAdmissionService) ListMyApplications(ctx context.Context, userID string) ([]*domain.ApplicationWithEvent, error) {
	f.lastUserID = userID
	return f.mine, f.err
}

// fakeAttendanceService implements domain.AttendanceService for handler tests.
type fakeAttendanceService struct {
	app      *domain.EventApplication
	err      error
	lastCode string
}

func (f *fakeAttendanceService) MarkAttended(ctx context.Context, code string, actor domain.Actor) (*domain.EventApplication, error) {
	f.lastCode = code
	return f.app, f.err
}

func (f *fakeAttendanceService) SweepUnattended(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// Path ids must be canonical UUIDs.
const (
	testEventID = "6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b"
	testBookID  = "0b7e4c1d-2a3f-4b5c-9d6e-7f8a9b0c1d2e"
)

// newRequest builds a request with the given path values and, unless actor is zero, an authenticated actor.
func newRequest(method, target, body string, actor domain.Actor, pathValues map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if actor.ID != "" {
		req = req.WithContext(middleware.SetActor(req.Context(), actor))
	}
	return req
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (json.RawMessage, *helpers.APIError) {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	return envelope.Data, envelope.Error
}
