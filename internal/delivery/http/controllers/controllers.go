// Package controllers holds the HTTP handlers. Every handler expects RequireAuth to have run.
package controllers

import (
	"net/http"

	"bookclub/internal/delivery/http/helpers"
	"bookclub/internal/delivery/http/middleware"
	"bookclub/internal/domain"
)

// actorOrUnauthorized returns the authenticated actor, writing a 401 when there is none.
func actorOrUnauthorized(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return actor, ok
}

// pathParam returns the named path value, writing a 400 when it is empty.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.PathValue(name)
	if v == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	return v, true
}

// idParam returns the named path value when it is a canonical UUID, writing a 400 otherwise.
// Ids are UUID columns, so anything else would fail in the database rather than miss.
func idParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, ok := pathParam(w, r, name)
	if !ok {
		return "", false
	}
	if !helpers.IsUUID(v) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, name+" must be a UUID")
		return "", false
	}
	return v, true
}

// DeletableResponse is the data payload of the deletable checks.
type DeletableResponse struct {
	Deletable bool `json:"deletable"`
}

// DeletableSuccessResponse is the success envelope of the deletable checks (200).
type DeletableSuccessResponse struct {
	Data  DeletableResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DeleteResponse is the data payload of a successful soft delete.
type DeleteResponse struct {
	Status string `json:"status"`
}

// DeleteSuccessResponse is the success envelope of a soft delete (200).
type DeleteSuccessResponse struct {
	Data  DeleteResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}
