package server

import (
	"fmt"
	"net/http"
	"time"
)

// sseKeepaliveInterval is how often keepalive comments are sent to
// prevent connection timeouts.
const sseKeepaliveInterval = 15 * time.Second

// sseEventName is the event type of every full-state frame.
const sseEventName = "sessions"

// handleEventStream handles GET /api/sessions/stream (SSE endpoint). The
// first frame carries the current session list; each later frame carries
// the list after a change.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	obs, err := s.subscribe()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer s.hub.Unsubscribe(obs)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.log.Debug().Str("observer", obs.ID).Msg("sse stream opened")

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-obs.C:
			if !ok {
				return
			}
			writeSSEEvent(w, payload)
			flusher.Flush()
		case <-keepalive.C:
			// Send a comment line as keepalive.
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE frame.
func writeSSEEvent(w http.ResponseWriter, payload []byte) {
	fmt.Fprintf(w, "event:%s\n", sseEventName)
	fmt.Fprintf(w, "data:%s\n\n", payload)
}
