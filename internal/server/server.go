// Package server provides the HTTP request surface: routing, identity
// resolution and JSON framing around the task and chat services.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/auth"
	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/raphaelgruber/campusdesk/internal/service"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Tasks    *service.TaskService
	Chat     *service.ChatService
	Resolver auth.Resolver
	Metrics  *metrics.Collector
	Store    Pinger // optional; /health reports its state when set
	Logger   *slog.Logger
}

// Server routes HTTP requests to the services.
type Server struct {
	deps   Dependencies
	router *mux.Router
	logger *slog.Logger
}

// New creates the server and registers all routes.
func New(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, router: mux.NewRouter(), logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(LoggingMiddleware(s.logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, s.logger, apperr.New(apperr.CodeMethodNotAllowed, "Method not allowed"))
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/chatbot/message", s.handleChatMessage).Methods(http.MethodPost)

	todos := api.PathPrefix("/todos").Subrouter()
	todos.Use(AuthMiddleware(s.deps.Resolver, s.logger))
	todos.HandleFunc("", s.handleListTodos).Methods(http.MethodGet)
	todos.HandleFunc("", s.handleCreateTodo).Methods(http.MethodPost)
	todos.HandleFunc("/{id}", s.handleUpdateTodo).Methods(http.MethodPut)
	todos.HandleFunc("/{id}", s.handleDeleteTodo).Methods(http.MethodDelete)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
