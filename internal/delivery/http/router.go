package http

import (
	"log/slog"
	"net/http"

	_ "bookclub/docs"
	"bookclub/internal/delivery/http/controllers"
	"bookclub/internal/delivery/http/middleware"
	"bookclub/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes the HTTP router with all application routes. Every API route requires a bearer token.
func NewRouter(
	events *controllers.EventController,
	applications *controllers.ApplicationController,
	books *controllers.BookController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(events.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", auth(events.GetEvent))
	mux.HandleFunc("POST /events/{eventID}/cancel", auth(events.CancelEvent))
	mux.HandleFunc("POST /events/{eventID}/reschedule", auth(events.RescheduleEvent))
	mux.HandleFunc("GET /events/{eventID}/deletable", auth(events.CanDeleteEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(events.DeleteEvent))

	// Applications
	mux.HandleFunc("POST /events/{eventID}/applications", auth(applications.Apply))
	mux.HandleFunc("GET /events/{eventID}/applications", auth(applications.ListEventApplications))
	mux.HandleFunc("GET /me/applications", auth(applications.ListMyApplications))
	mux.HandleFunc("POST /applications/{code}/attendance", auth(applications.MarkAttended))

	// Books
	mux.HandleFunc("GET /books/{bookID}/deletable", auth(books.CanDeleteBook))
	mux.HandleFunc("DELETE /books/{bookID}", auth(books.DeleteBook))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
