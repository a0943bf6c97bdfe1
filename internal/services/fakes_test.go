package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"bookclub/internal/domain"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memStore is an in-memory stand-in for the Postgres repositories. It hands out copies so that
// services cannot change stored state except through repository calls.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	books  map[string]*domain.Book
	events map[string]*domain.Event
	apps   map[string]*domain.EventApplication
	seq    int

	// lockFailures makes the next n GetForUpdate calls fail with ErrLockTimeout.
	lockFailures int
	forUpdate    int
	countErr     error
	commits      int
	rollbacks    int
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*domain.User{},
		books:  map[string]*domain.Book{},
		events: map[string]*domain.Event{},
		apps:   map[string]*domain.EventApplication{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addUser(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: id, Email: id + "@example.com", Name: "Name " + id}
	m.users[id] = u
	return u
}

func (m *memStore) addBook(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[id] = &domain.Book{ID: id, Title: "Book " + id}
}

func (m *memStore) addEvent(ev *domain.Event) *domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = m.nextID("ev")
	}
	if ev.EventType == "" {
		ev.EventType = domain.EventTypeMeeting
	}
	cp := *ev
	m.events[ev.ID] = &cp
	return ev
}

func (m *memStore) addApp(eventID, userID string, status domain.ApplicationStatus) *domain.EventApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := domain.NewEventApplication(eventID, userID, m.nextID("code"), testNow.Add(-time.Hour))
	a.ID = m.nextID("app")
	switch status {
	case domain.ApplicationStatusApproved:
		a.Approve(a.CreatedAt)
	case domain.ApplicationStatusRejected:
		a.Reject(domain.RejectionNoCapacity, a.CreatedAt)
	}
	cp := *a
	m.apps[a.ID] = &cp
	return a
}

func (m *memStore) event(id string) domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.events[id]
}

func (m *memStore) app(id string) domain.EventApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.apps[id]
}

// appsFor returns copies of the live applications of an event, oldest first.
func (m *memStore) appsFor(eventID string) []domain.EventApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EventApplication
	for _, a := range m.apps {
		if a.EventID == eventID && !a.IsDeleted {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) countStatus(eventID string, status domain.ApplicationStatus) int {
	n := 0
	for _, a := range m.appsFor(eventID) {
		if a.Status == status {
			n++
		}
	}
	return n
}

// memTx runs fn directly. Commit and rollback are only counted.
type memTx struct{ m *memStore }

func (t memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if err != nil {
		t.m.rollbacks++
		return err
	}
	t.m.commits++
	return nil
}

type memEvents struct{ m *memStore }

func (r memEvents) Create(ctx context.Context, e *domain.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e.ID = r.m.nextID("ev")
	cp := *e
	r.m.events[e.ID] = &cp
	return nil
}

func (r memEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.events[id]
	if !ok || e.IsDeleted {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r memEvents) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, id := range ids {
		if e, err := r.GetByID(ctx, id); err == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEvents) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	r.m.mu.Lock()
	r.m.forUpdate++
	if r.m.lockFailures > 0 {
		r.m.lockFailures--
		r.m.mu.Unlock()
		return nil, fmt.Errorf("%w: canceling statement due to lock timeout", domain.ErrLockTimeout)
	}
	r.m.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r memEvents) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	return r.update(id, func(e *domain.Event) {
		e.IsCancelled = true
		e.CancellationReason = &reason
		e.UpdatedAt = at
	})
}

func (r memEvents) UpdateDate(ctx context.Context, id string, date, at time.Time) error {
	return r.update(id, func(e *domain.Event) {
		e.Date = date
		e.UpdatedAt = at
	})
}

func (r memEvents) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	return r.update(id, func(e *domain.Event) {
		e.IsDeleted = true
		e.DeletedWhen = &at
		e.DeletedBy = &deletedBy
	})
}

func (r memEvents) update(id string, fn func(e *domain.Event)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.events[id]
	if !ok || e.IsDeleted {
		return domain.ErrNotFound
	}
	fn(e)
	return nil
}

func (r memEvents) CountUpcomingByBook(ctx context.Context, bookID string, now time.Time) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, e := range r.m.events {
		if e.BookID != nil && *e.BookID == bookID && !e.IsCancelled && !e.IsDeleted && e.Date.After(now) {
			n++
		}
	}
	return n, nil
}

type memApps struct{ m *memStore }

func (r memApps) Create(ctx context.Context, a *domain.EventApplication) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.apps {
		if existing.EventID == a.EventID && existing.UserID == a.UserID && !existing.IsDeleted {
			return domain.ErrDuplicateApplication
		}
	}
	a.ID = r.m.nextID("app")
	cp := *a
	r.m.apps[a.ID] = &cp
	return nil
}

func (r memApps) find(match func(a *domain.EventApplication) bool) (*domain.EventApplication, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.apps {
		if !a.IsDeleted && match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memApps) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventApplication, error) {
	return r.find(func(a *domain.EventApplication) bool { return a.EventID == eventID && a.UserID == userID })
}

func (r memApps) GetByCode(ctx context.Context, code string) (*domain.EventApplication, error) {
	return r.find(func(a *domain.EventApplication) bool { return a.Code == code })
}

func (r memApps) CountByEventAndStatus(ctx context.Context, eventID string, status domain.ApplicationStatus) (int, error) {
	r.m.mu.Lock()
	err := r.m.countErr
	r.m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.m.countStatus(eventID, status), nil
}

func (r memApps) ListApplicantsByEventAndStatus(ctx context.Context, eventID string, status domain.ApplicationStatus) ([]*domain.Applicant, error) {
	var out []*domain.Applicant
	for _, a := range r.m.appsFor(eventID) {
		if a.Status != status {
			continue
		}
		r.m.mu.Lock()
		u := r.m.users[a.UserID]
		r.m.mu.Unlock()
		app := a
		out = append(out, &domain.Applicant{Application: &app, Email: u.Email, Name: u.Name})
	}
	return out, nil
}

func (r memApps) RejectApproved(ctx context.Context, eventID string, reason domain.RejectionReason, at time.Time) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, a := range r.m.apps {
		if a.EventID == eventID && a.Status == domain.ApplicationStatusApproved && !a.IsDeleted {
			a.Reject(reason, at)
			n++
		}
	}
	return n, nil
}

func (r memApps) ListByEventID(ctx context.Context, eventID string, query domain.ApplicationListQuery) ([]*domain.EventApplication, int, error) {
	var matched []domain.EventApplication
	for _, a := range r.m.appsFor(eventID) {
		if query.Status == "" || a.Status == query.Status {
			matched = append(matched, a)
		}
	}
	if query.Order == domain.OrderAppliedDesc {
		slices.Reverse(matched)
	}
	out := []*domain.EventApplication{}
	for i := query.Offset(); i < len(matched) && len(out) < query.Limit(); i++ {
		a := matched[i]
		out = append(out, &a)
	}
	return out, len(matched), nil
}

func (r memApps) ListByUserID(ctx context.Context, userID string) ([]*domain.EventApplication, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.EventApplication{}
	for _, a := range r.m.apps {
		if a.UserID == userID && !a.IsDeleted {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memApps) SetAttended(ctx context.Context, id string, attended bool, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.apps[id]
	if !ok || a.IsDeleted {
		return domain.ErrNotFound
	}
	a.Attended = &attended
	a.UpdatedAt = at
	return nil
}

func (r memApps) MarkUnattendedBefore(ctx context.Context, cutoff, at time.Time) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	absent := false
	for _, a := range r.m.apps {
		e := r.m.events[a.EventID]
		if e == nil || e.IsCancelled || !e.Date.Before(cutoff) {
			continue
		}
		if a.Status == domain.ApplicationStatusApproved && a.Attended == nil && !a.IsDeleted {
			v := absent
			a.Attended = &v
			a.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

type memBooks struct{ m *memStore }

func (r memBooks) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.books[id]
	if !ok || b.IsDeleted {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r memBooks) GetForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	return r.GetByID(ctx, id)
}

func (r memBooks) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.books[id]
	if !ok || b.IsDeleted {
		return domain.ErrNotFound
	}
	b.IsDeleted = true
	b.DeletedWhen = &at
	b.DeletedBy = &deletedBy
	return nil
}

type memUsers struct{ m *memStore }

func (r memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// fakeEmails records every notification. Sends to addresses in failFor return an error.
type fakeEmails struct {
	mu          sync.Mutex
	failFor     map[string]bool
	approved    []*domain.ApplicationApprovedEmailData
	cancelled   []*domain.EventCancelledEmailData
	rescheduled []*domain.EventRescheduledEmailData
	attempts    int
}

var errSendFailed = errors.New("smtp: connection reset")

func (f *fakeEmails) record(to string) error {
	f.attempts++
	if f.failFor[to] {
		return errSendFailed
	}
	return nil
}

func (f *fakeEmails) SendApplicationApproved(ctx context.Context, d *domain.ApplicationApprovedEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(d.Email); err != nil {
		return err
	}
	f.approved = append(f.approved, d)
	return nil
}

func (f *fakeEmails) SendEventCancelled(ctx context.Context, d *domain.EventCancelledEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(d.Email); err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, d)
	return nil
}

func (f *fakeEmails) SendEventRescheduled(ctx context.Context, d *domain.EventRescheduledEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(d.Email); err != nil {
		return err
	}
	f.rescheduled = append(f.rescheduled, d)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (f *fakeAudit) RecordAction(ctx context.Context, e *domain.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

func (f *fakeAudit) actions() []domain.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// fixture wires the services to a fresh memStore with a fixed clock.
type fixture struct {
	store      *memStore
	emails     *fakeEmails
	audit      *fakeAudit
	dispatcher *Dispatcher
	deps       Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store:      store,
		emails:     &fakeEmails{failFor: map[string]bool{}},
		audit:      &fakeAudit{},
		dispatcher: NewDispatcher(discardLogger(), time.Second),
	}
	f.deps = Deps{
		Tx:           memTx{store},
		Events:       memEvents{store},
		Applications: memApps{store},
		Books:        memBooks{store},
		Users:        memUsers{store},
		Emails:       f.emails,
		Audit:        f.audit,
		Dispatcher:   f.dispatcher,
		Locks:        NewEventLocks(),
		Logger:       discardLogger(),
	}
	return f
}

func (f *fixture) base() base {
	b := newBase(f.deps, Options{ContextTimeout: 5 * time.Second, MaxRetries: 3, RetryBaseDelay: time.Millisecond})
	b.now = func() time.Time { return testNow }
	return b
}

func (f *fixture) admission() *admissionService   { return &admissionService{base: f.base()} }
func (f *fixture) events() *eventService          { return &eventService{base: f.base()} }
func (f *fixture) deletion() *deletionService     { return &deletionService{base: f.base()} }
func (f *fixture) attendance() *attendanceService { return &attendanceService{base: f.base()} }

// drain waits for background notifications.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.dispatcher.Wait(ctx); err != nil {
		t.Fatalf("dispatcher did not drain: %v", err)
	}
}

// futureEvent returns an active event two days after testNow.
func futureEvent(createdBy string, maxParticipants int) *domain.Event {
	return &domain.Event{
		Title:           "Reading circle",
		EventType:       domain.EventTypeReading,
		Date:            testNow.Add(48 * time.Hour),
		MaxParticipants: maxParticipants,
		CreatedBy:       createdBy,
	}
}

var (
	admin     = domain.Actor{ID: "admin-1", Roles: []string{domain.RoleAdmin}}
	organizer = domain.Actor{ID: "org-1", Roles: []string{domain.RoleOrganizer}}
	member    = domain.Actor{ID: "member-1", Roles: []string{domain.RoleMember}}
)
