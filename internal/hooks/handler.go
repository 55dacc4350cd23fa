package hooks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/secondscreen/internal/client"
)

// Handler applies hook events to a dashboard server.
type Handler struct {
	client client.SessionsClient
	log    zerolog.Logger
}

// NewHandler creates a hook handler that talks to c.
func NewHandler(c client.SessionsClient, log zerolog.Logger) *Handler {
	return &Handler{client: c, log: log.With().Str("component", "hooks").Logger()}
}

// Handle applies ev. dir is the working directory to report when the
// event carries no cwd. A directory the server does not track is not an
// error: hooks fire in every project, registered or not.
func (h *Handler) Handle(ctx context.Context, ev Event, dir string) error {
	if ev.CWD != "" {
		dir = ev.CWD
	}
	if dir == "" {
		return fmt.Errorf("hook %s: no working directory", ev.HookEventName)
	}

	action := Map(ev)
	log := h.log.With().Str("event", ev.HookEventName).Str("directory", dir).Logger()

	switch action.Kind {
	case ActionRegister:
		if _, err := h.client.RegisterSession(ctx, &client.RegisterSessionRequest{
			Directory: dir,
			Source:    action.Source,
		}); err != nil {
			return fmt.Errorf("hook %s: %w", ev.HookEventName, err)
		}
		log.Debug().Str("source", action.Source).Msg("session registered")

	case ActionStatus:
		status := action.Status
		_, err := h.client.UpdateSession(ctx, &client.UpdateSessionRequest{
			Directory: dir,
			Status:    &status,
		})
		if client.IsNotFound(err) {
			log.Debug().Msg("directory not tracked, ignoring")
			return nil
		}
		if err != nil {
			return fmt.Errorf("hook %s: %w", ev.HookEventName, err)
		}
		log.Debug().Str("status", string(status)).Msg("status updated")

	default:
		log.Debug().Msg("event ignored")
	}
	return nil
}
