package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookclub/internal/delivery/http/helpers"
	"bookclub/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title           string           `json:"title"`
	EventType       domain.EventType `json:"event_type"`
	Date            time.Time        `json:"date"`
	Description     string           `json:"description"`
	BookID          *string          `json:"book_id"`
	MaxParticipants int              `json:"max_participants"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if c.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if c.MaxParticipants <= 0 {
		errs = append(errs, "max_participants must be positive")
	}
	if c.EventType != "" && !c.EventType.Valid() {
		errs = append(errs, "event_type is not recognized")
	}
	if c.BookID != nil && !helpers.IsUUID(*c.BookID) {
		errs = append(errs, "book_id must be a UUID")
	}
	return errs
}

// EventSuccessResponse is the success envelope for endpoints returning a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventSummarySuccessResponse is the success envelope for GET /events/{eventID} (200).
type EventSummarySuccessResponse struct {
	Data  *domain.EventSummary `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// CancelEventRequest is the request body for POST /events/{eventID}/cancel.
type CancelEventRequest struct {
	Reason string `json:"reason"`
}

// Validate implements Validator.
func (c CancelEventRequest) Validate() []string {
	if strings.TrimSpace(c.Reason) == "" {
		return []string{"reason is required"}
	}
	return nil
}

// RescheduleEventRequest is the request body for POST /events/{eventID}/reschedule.
type RescheduleEventRequest struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// Validate implements Validator.
func (c RescheduleEventRequest) Validate() []string {
	if c.Date.IsZero() {
		return []string{"date is required"}
	}
	return nil
}

type EventController struct {
	Logger   *slog.Logger
	Events   domain.EventService
	Deletion domain.DeletionService
}

func NewEventController(logger *slog.Logger, events domain.EventService, deletion domain.DeletionService) *EventController {
	return &EventController{
		Logger:   logger,
		Events:   events,
		Deletion: deletion,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a book-club event. Organizers and admins only. The date must be at least 24 hours ahead. The caller becomes the event creator.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_date"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (book)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	event := domain.NewEvent(req.Title, req.EventType, req.Date, req.Description, req.BookID, req.MaxParticipants)
	if err := c.Events.CreateEvent(r.Context(), event, actor); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event with its approved count and remaining seats.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSummarySuccessResponse "data contains the event summary"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (malformed id)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	if _, ok := actorOrUnauthorized(w, r); !ok {
		return
	}
	summary, err := c.Events.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, summary)
}

// CancelEvent godoc
// @Summary Cancel an event
// @Description Cancels the event and rejects every approved application with EVENT_CANCELLED. Each affected applicant is emailed the reason. Creator or admin only. Cancelling twice is a no-op.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CancelEventRequest true "Cancellation reason"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the cancelled event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/cancel [post]
func (c *EventController) CancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	var req CancelEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	event, err := c.Events.CancelEvent(r.Context(), eventID, req.Reason, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// RescheduleEvent godoc
// @Summary Reschedule an event
// @Description Moves the event to a new date at least 24 hours ahead and emails every approved applicant. Application statuses are unchanged. Creator or admin only.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RescheduleEventRequest true "New date and optional reason"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the rescheduled event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_date"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event cancelled)"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/reschedule [post]
func (c *EventController) RescheduleEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	var req RescheduleEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	event, err := c.Events.RescheduleEvent(r.Context(), eventID, req.Date, req.Reason, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CanDeleteEvent godoc
// @Summary Check whether an event can be deleted
// @Description An event that has not taken place and still has approved applications cannot be deleted.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.DeletableSuccessResponse "data.deletable"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (malformed id)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/deletable [get]
func (c *EventController) CanDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	if _, ok := actorOrUnauthorized(w, r); !ok {
		return
	}
	deletable, err := c.Deletion.CanDeleteEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeletableResponse{Deletable: deletable})
}

// DeleteEvent godoc
// @Summary Soft delete an event
// @Description Marks the event deleted. Refused while the event is upcoming and has approved applications. Creator or admin only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.DeleteSuccessResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (malformed id)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: delete_blocked"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	if err := c.Deletion.SoftDeleteEvent(r.Context(), eventID, actor); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteResponse{Status: "deleted"})
}
