// Package store holds the in-memory directory → session map.
//
// A Store is not safe for concurrent use. Its owner (the tracker)
// serializes every access behind a single mutex.
package store

import (
	"strings"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// Store maps working directories to sessions and remembers insertion order.
type Store struct {
	sessions map[string]*model.Session
	order    []string
}

// New creates an empty store.
func New() *Store {
	return &Store{sessions: make(map[string]*model.Session)}
}

// NewFromSessions seeds a store from a decoded snapshot. A later entry for
// a directory replaces an earlier one but keeps the earlier position.
// Entries without a directory are skipped.
func NewFromSessions(sessions []model.Session) *Store {
	s := New()
	for i := range sessions {
		if sessions[i].Directory == "" {
			continue
		}
		sess := sessions[i].Clone()
		sess.Normalize()
		s.Upsert(&sess)
	}
	return s
}

// Get returns the session registered for dir.
func (s *Store) Get(dir string) (*model.Session, bool) {
	sess, ok := s.sessions[dir]
	return sess, ok
}

// Upsert inserts sess or replaces the session with the same directory.
func (s *Store) Upsert(sess *model.Session) {
	if _, ok := s.sessions[sess.Directory]; !ok {
		s.order = append(s.order, sess.Directory)
	}
	s.sessions[sess.Directory] = sess
}

// Remove deletes the session for dir and reports whether it existed.
func (s *Store) Remove(dir string) bool {
	if _, ok := s.sessions[dir]; !ok {
		return false
	}
	delete(s.sessions, dir)
	for i, d := range s.order {
		if d == dir {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the live sessions in insertion order. Callers holding the
// owner's lock may mutate them in place.
func (s *Store) List() []*model.Session {
	out := make([]*model.Session, 0, len(s.order))
	for _, d := range s.order {
		out = append(out, s.sessions[d])
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	return len(s.order)
}

// Snapshot returns deep copies of every session in insertion order.
func (s *Store) Snapshot() []model.Session {
	out := make([]model.Session, 0, len(s.order))
	for _, d := range s.order {
		out = append(out, s.sessions[d].Clone())
	}
	return out
}

// ResolveAncestor finds the registered directory that dir belongs to when
// dir itself is not registered. P qualifies when dir starts with P+"/";
// the longest qualifying P wins so the most specific project claims the
// update.
func (s *Store) ResolveAncestor(dir string) (string, bool) {
	best := ""
	for _, p := range s.order {
		if len(p) <= len(best) {
			continue
		}
		if strings.HasPrefix(dir, strings.TrimSuffix(p, "/")+"/") {
			best = p
		}
	}
	return best, best != ""
}
