package controllers

import (
	"log/slog"
	"net/http"

	"bookclub/internal/delivery/http/helpers"
	"bookclub/internal/domain"
)

type BookController struct {
	Logger   *slog.Logger
	Deletion domain.DeletionService
}

func NewBookController(logger *slog.Logger, deletion domain.DeletionService) *BookController {
	return &BookController{Logger: logger, Deletion: deletion}
}

// CanDeleteBook godoc
// @Summary Check whether a book can be deleted
// @Description A book referenced by an upcoming, non-cancelled event cannot be deleted.
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param bookID path string true "Book ID (UUID)"
// @Success 200 {object} controllers.DeletableSuccessResponse "data.deletable"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (malformed id)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /books/{bookID}/deletable [get]
func (c *BookController) CanDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := idParam(w, r, "bookID")
	if !ok {
		return
	}
	if _, ok := actorOrUnauthorized(w, r); !ok {
		return
	}
	deletable, err := c.Deletion.CanDeleteBook(r.Context(), bookID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeletableResponse{Deletable: deletable})
}

// DeleteBook godoc
// @Summary Soft delete a book
// @Description Marks the book deleted unless an upcoming, non-cancelled event references it. Admin only.
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param bookID path string true "Book ID (UUID)"
// @Success 200 {object} controllers.DeleteSuccessResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (malformed id)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: delete_blocked"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /books/{bookID} [delete]
func (c *BookController) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := idParam(w, r, "bookID")
	if !ok {
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	if err := c.Deletion.SoftDeleteBook(r.Context(), bookID, actor); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteResponse{Status: "deleted"})
}
