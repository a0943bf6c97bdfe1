package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookclub/internal/delivery/http/helpers"
	"bookclub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventController_CreateEvent(t *testing.T) {
	date := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC).Format(time.RFC3339)
	validBody := fmt.Sprintf(`{"title":"Dune night","event_type":"READING","date":%q,"max_participants":10,"book_id":%q}`, date, testBookID)

	tests := []struct {
		name       string
		body       string
		actor      domain.Actor
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "created", body: validBody, actor: organizer, wantStatus: http.StatusCreated},
		{name: "missing title", body: fmt.Sprintf(`{"date":%q,"max_participants":10}`, date), actor: organizer, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "zero capacity", body: fmt.Sprintf(`{"title":"x","date":%q,"max_participants":0}`, date), actor: organizer, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unknown event type", body: fmt.Sprintf(`{"title":"x","event_type":"PARTY","date":%q,"max_participants":1}`, date), actor: organizer, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "book id not a uuid", body: fmt.Sprintf(`{"title":"x","date":%q,"max_participants":1,"book_id":"book-1"}`, date), actor: organizer, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unknown field", body: `{"name":"x"}`, actor: organizer, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unauthenticated", body: validBody, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "member forbidden", body: validBody, actor: member, svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
		{name: "too soon", body: validBody, actor: organizer, svcErr: domain.ErrInvalidDate, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeInvalidDate},
		{name: "store failure", body: validBody, actor: organizer, svcErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{err: tt.svcErr}
			c := NewEventController(testLogger, svc, &fakeDeletionService{})
			rr := httptest.NewRecorder()

			c.CreateEvent(rr, newRequest(http.MethodPost, "/events", tt.body, tt.actor, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			data, apiErr := decodeEnvelope(t, rr)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			var event domain.Event
			require.NoError(t, json.Unmarshal(data, &event))
			assert.Equal(t, "ev-new", event.ID)
			assert.Equal(t, organizer.ID, event.CreatedBy)
			require.NotNil(t, svc.lastCreated)
			assert.Equal(t, domain.EventTypeReading, svc.lastCreated.EventType)
			assert.Equal(t, testBookID, *svc.lastCreated.BookID)
			assert.Equal(t, 10, svc.lastCreated.MaxParticipants)
		})
	}
}

func TestEventController_GetEvent(t *testing.T) {
	svc := &fakeEventService{summary: &domain.EventSummary{Event: &domain.Event{ID: "ev-1"}, ApprovedCount: 2, AvailableSeats: 3}}
	c := NewEventController(testLogger, svc, &fakeDeletionService{})
	rr := httptest.NewRecorder()

	c.GetEvent(rr, newRequest(http.MethodGet, "/events/ev-1", "", member, map[string]string{"eventID": testEventID}))

	require.Equal(t, http.StatusOK, rr.Code)
	data, _ := decodeEnvelope(t, rr)
	var got domain.EventSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got.AvailableSeats)
	assert.Equal(t, testEventID, svc.lastEventID)

	svc.err = domain.ErrNotFound
	rr = httptest.NewRecorder()
	c.GetEvent(rr, newRequest(http.MethodGet, "/events/"+testBookID, "", member, map[string]string{"eventID": testBookID}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEventController_CancelEvent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "cancelled", body: `{"reason":"venue closed"}`, wantStatus: http.StatusOK},
		{name: "missing reason", body: `{"reason":" "}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "not the creator", body: `{"reason":"x"}`, svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
		{name: "contended", body: `{"reason":"x"}`, svcErr: fmt.Errorf("%w: lock", domain.ErrTransient), wantStatus: http.StatusServiceUnavailable, wantCode: helpers.ErrCodeServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := "venue closed"
			svc := &fakeEventService{err: tt.svcErr, event: &domain.Event{ID: "ev-1", IsCancelled: true, CancellationReason: &reason}}
			c := NewEventController(testLogger, svc, &fakeDeletionService{})
			rr := httptest.NewRecorder()

			c.CancelEvent(rr, newRequest(http.MethodPost, "/events/ev-1/cancel", tt.body, organizer, map[string]string{"eventID": testEventID}))

			require.Equal(t, tt.wantStatus, rr.Code)
			_, apiErr := decodeEnvelope(t, rr)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, "venue closed", svc.lastReason)
			assert.Equal(t, organizer, svc.lastActor)
		})
	}
}

func TestEventController_RescheduleEvent(t *testing.T) {
	newDate := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	body := fmt.Sprintf(`{"date":%q,"reason":"room swap"}`, newDate.Format(time.RFC3339))

	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "rescheduled", body: body, wantStatus: http.StatusOK},
		{name: "missing date", body: `{"reason":"x"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "too soon", body: body, svcErr: domain.ErrInvalidDate, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeInvalidDate},
		{name: "cancelled event", body: body, svcErr: domain.ErrEventCancelled, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{err: tt.svcErr, event: &domain.Event{ID: "ev-1", Date: newDate}}
			c := NewEventController(testLogger, svc, &fakeDeletionService{})
			rr := httptest.NewRecorder()

			c.RescheduleEvent(rr, newRequest(http.MethodPost, "/events/ev-1/reschedule", tt.body, organizer, map[string]string{"eventID": testEventID}))

			require.Equal(t, tt.wantStatus, rr.Code)
			_, apiErr := decodeEnvelope(t, rr)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.True(t, newDate.Equal(svc.lastRescheduled))
			assert.Equal(t, "room swap", svc.lastReason)
		})
	}
}

func TestEventController_Deletion(t *testing.T) {
	t.Run("deletable", func(t *testing.T) {
		del := &fakeDeletionService{deletable: true}
		c := NewEventController(testLogger, &fakeEventService{}, del)
		rr := httptest.NewRecorder()

		c.CanDeleteEvent(rr, newRequest(http.MethodGet, "/events/ev-1/deletable", "", organizer, map[string]string{"eventID": testEventID}))

		require.Equal(t, http.StatusOK, rr.Code)
		data, _ := decodeEnvelope(t, rr)
		var got DeletableResponse
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, got.Deletable)
		assert.Equal(t, testEventID, del.lastID)
	})

	t.Run("blocked", func(t *testing.T) {
		del := &fakeDeletionService{err: &domain.DeleteBlockedError{Reason: "event has 1 approved participant(s)"}}
		c := NewEventController(testLogger, &fakeEventService{}, del)
		rr := httptest.NewRecorder()

		c.DeleteEvent(rr, newRequest(http.MethodDelete, "/events/ev-1", "", organizer, map[string]string{"eventID": testEventID}))

		require.Equal(t, http.StatusConflict, rr.Code)
		_, apiErr := decodeEnvelope(t, rr)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodeDeleteBlocked, apiErr.Code)
		assert.Contains(t, apiErr.Message, "approved participant")
	})

	t.Run("deleted", func(t *testing.T) {
		del := &fakeDeletionService{}
		c := NewEventController(testLogger, &fakeEventService{}, del)
		rr := httptest.NewRecorder()

		c.DeleteEvent(rr, newRequest(http.MethodDelete, "/events/ev-1", "", organizer, map[string]string{"eventID": testEventID}))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, organizer, del.lastActor)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{}, &fakeDeletionService{})
		rr := httptest.NewRecorder()
		c.DeleteEvent(rr, newRequest(http.MethodDelete, "/events/ev-1", "", domain.Actor{}, map[string]string{"eventID": testEventID}))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
