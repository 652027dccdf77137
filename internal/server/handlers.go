package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/auth"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

type todoResponse struct {
	Message string       `json:"message"`
	Todo    *models.Task `json:"todo"`
}

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []models.Turn `json:"conversationHistory"`
}

type chatResponse struct {
	Success bool          `json:"success"`
	Reply   string        `json:"reply"`
	Usage   *models.Usage `json:"usage,omitempty"`
}

// userID returns the identity set by AuthMiddleware.
func userID(r *http.Request) (string, error) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return "", apperr.AuthRejected("No token, authorization denied", nil)
	}
	return id, nil
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	tasks, err := s.deps.Tasks.List(r.Context(), owner)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": tasks})
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var input models.TaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, s.logger, err)
		return
	}
	task, err := s.deps.Tasks.Create(r.Context(), owner, input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, todoResponse{Message: "Todo created successfully", Todo: task})
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var patch models.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, s.logger, err)
		return
	}
	task, err := s.deps.Tasks.Update(r.Context(), owner, mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todoResponse{Message: "Todo updated successfully", Todo: task})
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	task, err := s.deps.Tasks.Delete(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todoResponse{Message: "Todo deleted successfully", Todo: task})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	reply, err := s.deps.Chat.Respond(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Reply: reply.Text, Usage: reply.Usage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Metrics.Snapshot())
}
