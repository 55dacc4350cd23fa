// Package server exposes the session tracker over HTTP and fans changes out
// to push-channel observers, the snapshot saver, and the event bus.
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/secondscreen/internal/events"
	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/notify"
	"github.com/alfredjeanlab/secondscreen/internal/tracker"
)

// Scheduler is the part of snapshot.Saver the server needs.
type Scheduler interface {
	Schedule() bool
}

// Options wires a Server. Tracker is required; Hub defaults to a new hub,
// Publisher to a NoopPublisher, and Saver to none.
type Options struct {
	Tracker   *tracker.Tracker
	Hub       *notify.Hub
	Publisher events.Publisher
	Saver     Scheduler
	Logger    zerolog.Logger
}

// Server serves the dashboard API.
type Server struct {
	tracker   *tracker.Tracker
	hub       *notify.Hub
	publisher events.Publisher
	saver     Scheduler
	log       zerolog.Logger
}

// New returns a Server and installs its change hook on the tracker.
func New(opts Options) *Server {
	log := opts.Logger.With().Str("component", "server").Logger()
	s := &Server{
		tracker:   opts.Tracker,
		hub:       opts.Hub,
		publisher: opts.Publisher,
		saver:     opts.Saver,
		log:       log,
	}
	if s.hub == nil {
		s.hub = notify.NewHub(opts.Logger)
	}
	if s.publisher == nil {
		s.publisher = &events.NoopPublisher{}
	}
	s.tracker.SetOnChange(s.sessionsChanged)
	return s
}

// Hub returns the observer registry.
func (s *Server) Hub() *notify.Hub {
	return s.hub
}

// sessionsChanged runs under the tracker lock after every observable
// change. Nothing here may block.
func (s *Server) sessionsChanged(sessions []model.Session) {
	if s.saver != nil {
		s.saver.Schedule()
	}

	payload, err := encodeSessions(sessions)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode sessions for broadcast")
	} else {
		s.hub.Broadcast(payload)
	}

	ev := events.SessionsChanged{Sessions: sessions, At: time.Now().UTC()}
	if err := s.publisher.Publish(context.Background(), events.TopicSessionsChanged, ev); err != nil {
		s.log.Warn().Err(err).Str("topic", events.TopicSessionsChanged).Msg("failed to publish event")
	}
}

// subscribe registers an observer preloaded with the current state. The
// tracker lock orders it against broadcasts, so no change is missed.
func (s *Server) subscribe() (*notify.Observer, error) {
	var (
		obs *notify.Observer
		err error
	)
	s.tracker.View(func(sessions []model.Session) {
		var payload []byte
		payload, err = encodeSessions(sessions)
		if err != nil {
			return
		}
		obs = s.hub.Subscribe(payload)
	})
	return obs, err
}

func encodeSessions(sessions []model.Session) ([]byte, error) {
	if sessions == nil {
		sessions = []model.Session{}
	}
	return json.Marshal(sessions)
}
