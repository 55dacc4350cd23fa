package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/tracker"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(s.log))
	r.Use(Recovery(s.log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/api/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleRegisterSession)
		r.Put("/", s.handleUpdateSession)
		r.Delete("/", s.handleDeleteSession)
		r.Get("/stream", s.handleEventStream)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleAddTask)
			r.Put("/", s.handleUpdateTask)
			r.Delete("/", s.handleDeleteTask)
		})
	})

	return r
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"sessions":  s.tracker.Len(),
		"observers": s.hub.Count(),
	})
}

// handleListSessions handles GET /api/sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.List())
}

type registerRequest struct {
	Directory string `json:"directory"`
	Source    string `json:"source,omitempty"`
}

// handleRegisterSession handles POST /api/sessions.
func (s *Server) handleRegisterSession(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, created, err := s.tracker.Register(req.Directory, req.Source)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sess)
}

type updateRequest struct {
	Directory    string               `json:"directory"`
	Summary      *string              `json:"summary,omitempty"`
	Status       *model.Status        `json:"status,omitempty"`
	GitHubIssues *[]model.GitHubIssue `json:"githubIssues,omitempty"`
}

// handleUpdateSession handles PUT /api/sessions.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.tracker.Update(tracker.SessionUpdate{
		Directory:    req.Directory,
		Summary:      req.Summary,
		Status:       req.Status,
		GitHubIssues: req.GitHubIssues,
	})
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type directoryRequest struct {
	Directory string `json:"directory"`
}

// handleDeleteSession handles DELETE /api/sessions.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	var req directoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.tracker.Remove(req.Directory); err != nil {
		writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addTaskRequest struct {
	Directory string `json:"directory"`
	Text      string `json:"text"`
}

// handleAddTask handles POST /api/sessions/tasks.
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := s.tracker.AddTask(req.Directory, req.Text)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type updateTaskRequest struct {
	Directory string  `json:"directory"`
	TaskID    string  `json:"taskId"`
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// handleUpdateTask handles PUT /api/sessions/tasks.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := s.tracker.UpdateTask(tracker.TaskUpdate{
		Directory: req.Directory,
		TaskID:    req.TaskID,
		Text:      req.Text,
		Completed: req.Completed,
	})
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type deleteTaskRequest struct {
	Directory string `json:"directory"`
	TaskID    string `json:"taskId"`
}

// handleDeleteTask handles DELETE /api/sessions/tasks.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	var req deleteTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.tracker.DeleteTask(req.Directory, req.TaskID); err != nil {
		writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads the request body into v. An empty body decodes as {} so
// that missing fields surface as validation errors. It writes a 400 and
// returns false on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// writeTrackerError maps tracker errors to HTTP status codes.
func writeTrackerError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
