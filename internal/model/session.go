package model

import (
	"path"
	"time"
)

// Status is the activity state of a tracked session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusBusy    Status = "busy"
	StatusWaiting Status = "waiting"
	StatusStopped Status = "stopped"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusIdle, StatusBusy, StatusWaiting, StatusStopped:
		return true
	}
	return false
}

// Priority ranks statuses by urgency. A session that needs attention
// (waiting) outranks one that is working (busy), which outranks idle.
// Archived sessions rank lowest. Unknown values rank with idle.
func (s Status) Priority() int {
	switch s {
	case StatusStopped:
		return -1
	case StatusBusy:
		return 1
	case StatusWaiting:
		return 2
	}
	return 0
}

// SortRank orders statuses for display: waiting first, archived last.
func (s Status) SortRank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusBusy:
		return 1
	case StatusIdle:
		return 2
	case StatusStopped:
		return 3
	}
	return 4
}

// Label returns the human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusBusy:
		return "Busy"
	case StatusWaiting:
		return "Awaiting Input"
	case StatusStopped:
		return "Archived"
	}
	return string(s)
}

// Registration sources reported by the assistant's SessionStart hook.
const (
	SourceStartup = "startup"
	SourceResume  = "resume"
	SourceClear   = "clear"
	SourceCompact = "compact"
)

// IsContinuation reports whether a registration source continues an
// existing conversation, in which case the session keeps its summary,
// issues, and tasks.
func IsContinuation(source string) bool {
	return source == SourceResume || source == SourceCompact
}

// GitHubIssue links a session to an issue.
type GitHubIssue struct {
	Number int    `json:"number"`
	URL    string `json:"url,omitempty"`
}

// Task is one entry in a session's to-do list.
type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SetCompleted marks the task complete or incomplete. CompletedAt is set
// only on the transition to complete and cleared on the transition back.
// It reports whether the task changed.
func (t *Task) SetCompleted(completed bool, now time.Time) bool {
	if t.Completed == completed {
		return false
	}
	t.Completed = completed
	if completed {
		ts := now
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
	return true
}

// Session is the tracked state of one assistant working directory.
type Session struct {
	Directory     string        `json:"directory"`
	DirectoryName string        `json:"directoryName"`
	Summary       string        `json:"summary"`
	Status        Status        `json:"status"`
	GitHubIssues  []GitHubIssue `json:"githubIssues"`
	Tasks         []Task        `json:"tasks"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

// NewSession returns an idle session for directory with empty summary,
// issues, and tasks.
func NewSession(directory string, now time.Time) *Session {
	return &Session{
		Directory:     directory,
		DirectoryName: path.Base(directory),
		Status:        StatusIdle,
		GitHubIssues:  []GitHubIssue{},
		Tasks:         []Task{},
		CreatedAt:     now,
		LastUpdated:   now,
	}
}

// FindTask returns the task with the given id, or nil.
func (s *Session) FindTask(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// RemoveTask deletes the task with the given id and reports whether it existed.
func (s *Session) RemoveTask(id string) bool {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

// AllTasksCompleted reports whether every task is completed. A session
// without tasks counts as completed.
func (s *Session) AllTasksCompleted() bool {
	for _, t := range s.Tasks {
		if !t.Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s *Session) Clone() Session {
	c := *s
	c.GitHubIssues = make([]GitHubIssue, len(s.GitHubIssues))
	copy(c.GitHubIssues, s.GitHubIssues)
	c.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.CompletedAt != nil {
			ts := *t.CompletedAt
			t.CompletedAt = &ts
		}
		c.Tasks[i] = t
	}
	return c
}

// Normalize fills nil slices and a missing display name, typically after
// decoding a snapshot written by an older version.
func (s *Session) Normalize() {
	if s.GitHubIssues == nil {
		s.GitHubIssues = []GitHubIssue{}
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.DirectoryName == "" {
		s.DirectoryName = path.Base(s.Directory)
	}
	if s.Status == "" {
		s.Status = StatusIdle
	}
	for i := range s.Tasks {
		t := &s.Tasks[i]
		if !t.Completed {
			t.CompletedAt = nil
		}
	}
}
