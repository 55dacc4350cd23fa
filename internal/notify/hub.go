// Package notify fans the current session list out to connected observers.
//
// Every observer owns a one-slot mailbox. A broadcast replaces any state the
// observer has not picked up yet, so a slow observer skips intermediate
// states and never holds up the others.
package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Observer is one registered push-channel client.
type Observer struct {
	// ID identifies the observer in logs.
	ID string

	// C delivers full-state payloads. It is closed on Unsubscribe or Close.
	C <-chan []byte

	ch chan []byte
}

// Hub is the registry of observers.
type Hub struct {
	mu        sync.Mutex
	observers map[*Observer]struct{}
	closed    bool
	log       zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		observers: make(map[*Observer]struct{}),
		log:       log.With().Str("component", "notify").Logger(),
	}
}

// Subscribe registers an observer whose mailbox already holds initial, so
// it receives the full state without waiting for the next change. After
// Close the returned observer's channel is already closed.
func (h *Hub) Subscribe(initial []byte) *Observer {
	ch := make(chan []byte, 1)
	o := &Observer{ID: uuid.NewString(), C: ch, ch: ch}
	if initial != nil {
		ch <- initial
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return o
	}
	h.observers[o] = struct{}{}
	h.log.Debug().Str("observer", o.ID).Int("total", len(h.observers)).Msg("observer connected")
	return o
}

// Unsubscribe removes o and closes its channel. It is safe to call more
// than once and after Close.
func (h *Hub) Unsubscribe(o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[o]; !ok {
		return
	}
	delete(h.observers, o)
	close(o.ch)
	h.log.Debug().Str("observer", o.ID).Int("total", len(h.observers)).Msg("observer disconnected")
}

// Broadcast delivers payload to every observer without blocking.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for o := range h.observers {
		select {
		case o.ch <- payload:
			continue
		default:
		}
		// Mailbox full: replace the stale state.
		select {
		case <-o.ch:
		default:
		}
		select {
		case o.ch <- payload:
		default:
		}
	}
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Close disconnects every observer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for o := range h.observers {
		close(o.ch)
	}
	h.log.Info().Int("observers", len(h.observers)).Msg("hub closed")
	clear(h.observers)
}
