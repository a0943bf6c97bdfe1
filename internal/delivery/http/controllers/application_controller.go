package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"bookclub/internal/delivery/http/helpers"
	"bookclub/internal/domain"
)

// ApplicationSuccessResponse is the success envelope for endpoints returning one application.
type ApplicationSuccessResponse struct {
	Data  *domain.EventApplication `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// ListEventApplicationsResponse is the data payload for GET /events/{eventID}/applications (200).
type ListEventApplicationsResponse struct {
	Items      []*domain.EventApplication `json:"items"`
	Pagination helpers.PaginationMeta     `json:"pagination"`
}

// ListEventApplicationsSuccessResponse is the success envelope for GET /events/{eventID}/applications (200).
type ListEventApplicationsSuccessResponse struct {
	Data  ListEventApplicationsResponse `json:"data"`
	Error *helpers.APIError             `json:"error"`
}

// ListMyApplicationsSuccessResponse is the success envelope for GET /me/applications (200).
type ListMyApplicationsSuccessResponse struct {
	Data  []*domain.ApplicationWithEvent `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

type ApplicationController struct {
	Logger     *slog.Logger
	Admission  domain.AdmissionService
	Attendance domain.AttendanceService
}

func NewApplicationController(logger *slog.Logger, admission domain.AdmissionService, attendance domain.AttendanceService) *ApplicationController {
	return &ApplicationController{
		Logger:     logger,
		Admission:  admission,
		Attendance: attendance,
	}
}

// Apply godoc
// @Summary Apply for a seat
// @Description Records the caller's application. It is APPROVED while seats remain, otherwise REJECTED with NO_CAPACITY. Both outcomes return 201. Approved applicants receive a confirmation email with their check-in code.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.ApplicationSuccessResponse "data contains the application"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (malformed id)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already applied, cancelled or past event)"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/applications [post]
func (c *ApplicationController) Apply(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	app, err := c.Admission.Apply(r.Context(), actor.ID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, app)
}

// ListEventApplications godoc
// @Summary List an event's applications
// @Description Paginated list of the event's applications. Creator or admin only.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param status query string false "Only applications with this status" Enums(PENDING, APPROVED, REJECTED)
// @Param sort query string false "applied_at (default, admission order) or -applied_at" Enums(applied_at, -applied_at)
// @Success 200 {object} controllers.ListEventApplicationsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/applications [get]
func (c *ApplicationController) ListEventApplications(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	params, err := helpers.ParsePagination(r)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	query := domain.ApplicationListQuery{
		PaginationParams: params,
		Status:           domain.ApplicationStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		Order:            domain.ApplicationOrder(r.URL.Query().Get("sort")),
	}
	if err := query.Validate(); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	list, total, err := c.Admission.ListEventApplications(r.Context(), eventID, actor, query)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if list == nil {
		list = []*domain.EventApplication{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventApplicationsResponse{Items: list, Pagination: meta})
}

// ListMyApplications godoc
// @Summary List my applications
// @Description Returns the caller's applications together with their events.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListMyApplicationsSuccessResponse "data contains applications with events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/applications [get]
func (c *ApplicationController) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	list, err := c.Admission.ListMyApplications(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// MarkAttended godoc
// @Summary Check in an applicant
// @Description Marks the approved application identified by its code as attended. Event creator or admin only.
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param code path string true "Application code"
// @Success 200 {object} controllers.ApplicationSuccessResponse "data contains the application"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (application not approved)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /applications/{code}/attendance [post]
func (c *ApplicationController) MarkAttended(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	app, err := c.Attendance.MarkAttended(r.Context(), code, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, app)
}
