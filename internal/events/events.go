package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// Event topic constants
const (
	// TopicSessionsChanged carries the full session list after every
	// observable change.
	TopicSessionsChanged = "secondscreen.sessions.changed"

	// TopicAll matches every topic this service publishes.
	TopicAll = "secondscreen.>"
)

// SessionsChanged is the payload published on TopicSessionsChanged.
type SessionsChanged struct {
	Sessions []model.Session `json:"sessions"`
	At       time.Time       `json:"at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
