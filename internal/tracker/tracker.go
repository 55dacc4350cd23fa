// Package tracker owns the live session state.
//
// A Tracker serializes every mutation behind one mutex, resolves updates
// from subdirectories to their registered ancestor, arbitrates status on
// those attributed updates, and reports each observable change exactly
// once through its ChangeFunc. A background sweeper expires completed
// tasks and long-archived sessions.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/secondscreen/internal/idgen"
	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/store"
)

// ErrNotFound is wrapped by every error about an unknown session or task.
var ErrNotFound = errors.New("not found")

var (
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
)

// Default expiry settings.
const (
	DefaultTaskTTL       = 5 * time.Minute
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSweepInterval = 60 * time.Second
)

// ChangeFunc receives a deep copy of every session after an observable
// change. It runs with the tracker's lock held and must not block.
type ChangeFunc func(sessions []model.Session)

// Options configures a Tracker. Zero values select the defaults.
type Options struct {
	// TaskTTL is how long a completed task stays visible.
	TaskTTL time.Duration

	// SessionTTL is how long an archived session with no open tasks is kept
	// after its last update.
	SessionTTL time.Duration

	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time

	// NewTaskID returns an ID for which taken reports false.
	// Defaults to idgen.Unique.
	NewTaskID func(taken func(string) bool) (string, error)

	// OnChange is called after each observable change.
	OnChange ChangeFunc

	Logger zerolog.Logger
}

// Tracker is the single owner of a session store.
type Tracker struct {
	mu       sync.Mutex
	store    *store.Store
	onChange ChangeFunc

	taskTTL    time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	newTaskID  func(taken func(string) bool) (string, error)
	log        zerolog.Logger

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates a tracker that owns st. A nil st starts empty.
func New(st *store.Store, opts Options) *Tracker {
	if st == nil {
		st = store.New()
	}
	t := &Tracker{
		store:      st,
		onChange:   opts.OnChange,
		taskTTL:    opts.TaskTTL,
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		newTaskID:  opts.NewTaskID,
		log:        opts.Logger.With().Str("component", "tracker").Logger(),
	}
	if t.taskTTL <= 0 {
		t.taskTTL = DefaultTaskTTL
	}
	if t.sessionTTL <= 0 {
		t.sessionTTL = DefaultSessionTTL
	}
	if t.now == nil {
		t.now = func() time.Time { return time.Now().UTC() }
	}
	if t.newTaskID == nil {
		t.newTaskID = idgen.Unique
	}
	return t
}

// SetOnChange replaces the change hook. Used when the hook's consumers
// need the tracker to exist first.
func (t *Tracker) SetOnChange(fn ChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// List returns a deep copy of every session in insertion order.
func (t *Tracker) List() []model.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Snapshot()
}

// Get returns a copy of the session registered for dir.
func (t *Tracker) Get(dir string) (model.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.store.Get(dir)
	if !ok {
		return model.Session{}, false
	}
	return sess.Clone(), true
}

// View calls fn with a deep copy of every session while holding the lock,
// so no change can be reported between the copy and fn returning. fn must
// not call back into the tracker.
func (t *Tracker) View(fn func(sessions []model.Session)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.store.Snapshot())
}

// Len returns the number of tracked sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Len()
}

// changed must be called with t.mu held.
func (t *Tracker) changed() {
	if t.onChange != nil {
		t.onChange(t.store.Snapshot())
	}
}

// Register creates the session for dir or resets an existing one to idle.
// Unless source continues the previous conversation, re-registration also
// clears the summary and issues and drops completed tasks. It reports
// whether the session was newly created.
func (t *Tracker) Register(dir, source string) (model.Session, bool, error) {
	var ve model.ValidationError
	ve.Required("directory", dir)
	if err := ve.Err(); err != nil {
		return model.Session{}, false, err
	}
	if source == "" {
		source = model.SourceStartup
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	sess, ok := t.store.Get(dir)
	if !ok {
		sess = model.NewSession(dir, now)
		t.store.Upsert(sess)
		t.log.Info().Str("directory", dir).Str("source", source).Msg("session registered")
		t.changed()
		return sess.Clone(), true, nil
	}

	sess.Status = model.StatusIdle
	if model.IsContinuation(source) {
		t.log.Info().Str("directory", dir).Str("source", source).Msg("session resumed")
	} else {
		sess.Summary = ""
		sess.GitHubIssues = []model.GitHubIssue{}
		kept := sess.Tasks[:0]
		for _, task := range sess.Tasks {
			if !task.Completed {
				kept = append(kept, task)
			}
		}
		sess.Tasks = kept
		t.log.Info().Str("directory", dir).Str("source", source).Msg("session re-registered")
	}
	sess.LastUpdated = now
	t.changed()
	return sess.Clone(), false, nil
}

// SessionUpdate is a partial update. Nil fields are left untouched.
type SessionUpdate struct {
	Directory    string
	Summary      *string
	Status       *model.Status
	GitHubIssues *[]model.GitHubIssue
}

// Update applies u to the session registered for u.Directory, or to its
// closest registered ancestor when the directory itself is unknown. On an
// attributed update a status only applies when it outranks the current
// one; summary and issues always apply.
//
// An update that supplies no summary or issues and leaves the status
// unchanged still bumps lastUpdated but is not reported as a change.
func (t *Tracker) Update(u SessionUpdate) (model.Session, error) {
	var ve model.ValidationError
	ve.Required("directory", u.Directory)
	if err := ve.Err(); err != nil {
		return model.Session{}, err
	}
	if u.Status != nil {
		if err := model.ValidateStatus(*u.Status); err != nil {
			return model.Session{}, err
		}
	}
	if u.GitHubIssues != nil {
		if err := model.ValidateIssues(*u.GitHubIssues); err != nil {
			return model.Session{}, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, attributed, err := t.resolve(u.Directory)
	if err != nil {
		return model.Session{}, err
	}

	prev := sess.Status
	if u.Summary != nil {
		sess.Summary = *u.Summary
	}
	if u.Status != nil && (!attributed || shouldApplyStatus(sess.Status, *u.Status)) {
		sess.Status = *u.Status
	}
	if u.GitHubIssues != nil {
		issues := make([]model.GitHubIssue, len(*u.GitHubIssues))
		copy(issues, *u.GitHubIssues)
		sess.GitHubIssues = issues
	}
	sess.LastUpdated = t.now()

	if u.Summary == nil && u.GitHubIssues == nil && sess.Status == prev {
		return sess.Clone(), nil
	}

	ev := t.log.Info().Str("directory", sess.Directory)
	if attributed {
		ev = ev.Str("from", u.Directory)
	}
	ev.Str("status", string(prev)+"->"+string(sess.Status)).Msg("session updated")
	t.changed()
	return sess.Clone(), nil
}

// resolve must be called with t.mu held.
func (t *Tracker) resolve(dir string) (*model.Session, bool, error) {
	if sess, ok := t.store.Get(dir); ok {
		return sess, false, nil
	}
	parent, ok := t.store.ResolveAncestor(dir)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrSessionNotFound, dir)
	}
	sess, _ := t.store.Get(parent)
	t.log.Debug().Str("directory", dir).Str("parent", parent).Msg("attributed to parent session")
	return sess, true, nil
}

// shouldApplyStatus reports whether an attributed update may replace
// current with incoming.
func shouldApplyStatus(current, incoming model.Status) bool {
	return incoming.Priority() > current.Priority()
}

// Remove deletes the session for dir. Removing an unknown directory is
// not an error; it reports whether the session existed.
func (t *Tracker) Remove(dir string) (bool, error) {
	var ve model.ValidationError
	ve.Required("directory", dir)
	if err := ve.Err(); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.store.Remove(dir) {
		return false, nil
	}
	t.log.Info().Str("directory", dir).Msg("session removed")
	t.changed()
	return true, nil
}
