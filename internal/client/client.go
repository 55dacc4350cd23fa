// Package client provides the interface the ss CLI uses to talk to a
// running dashboard server and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// DefaultURL is the server address used when none is configured.
const DefaultURL = "http://localhost:3456"

// DefaultTimeout bounds each non-streaming request.
const DefaultTimeout = 10 * time.Second

// SessionsClient is the interface that all ss CLI commands use to
// communicate with the dashboard server.
type SessionsClient interface {
	// Sessions
	ListSessions(ctx context.Context) ([]model.Session, error)
	RegisterSession(ctx context.Context, req *RegisterSessionRequest) (*model.Session, error)
	UpdateSession(ctx context.Context, req *UpdateSessionRequest) (*model.Session, error)
	DeleteSession(ctx context.Context, directory string) error

	// Tasks
	AddTask(ctx context.Context, directory, text string) (*model.Task, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*model.Task, error)
	DeleteTask(ctx context.Context, directory, taskID string) error

	// Push channel
	Stream(ctx context.Context, fn func([]model.Session) error) error

	// Health
	Health(ctx context.Context) (*HealthResponse, error)
}

// RegisterSessionRequest is the body of POST /api/sessions.
type RegisterSessionRequest struct {
	Directory string `json:"directory"`
	Source    string `json:"source,omitempty"`
}

// UpdateSessionRequest is the body of PUT /api/sessions. Nil fields are
// omitted so the server leaves them untouched.
type UpdateSessionRequest struct {
	Directory    string               `json:"directory"`
	Summary      *string              `json:"summary,omitempty"`
	Status       *model.Status        `json:"status,omitempty"`
	GitHubIssues *[]model.GitHubIssue `json:"githubIssues,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/sessions/tasks.
type UpdateTaskRequest struct {
	Directory string  `json:"directory"`
	TaskID    string  `json:"taskId"`
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Sessions  int    `json:"sessions"`
	Observers int    `json:"observers"`
}
