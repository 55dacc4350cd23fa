package tracker

import (
	"time"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// Sweep removes expired completed tasks and expired archived sessions in
// one pass and reports a single change if either purge removed anything.
func (t *Tracker) Sweep() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	tasks := t.purgeExpiredTasks(now)
	sessions := t.purgeExpiredSessions(now)
	if tasks > 0 || sessions > 0 {
		t.log.Info().Int("tasks", tasks).Int("sessions", sessions).Msg("purged expired entries")
		t.changed()
		return true
	}
	return false
}

// purgeExpiredTasks drops completed tasks whose completedAt is at least
// taskTTL old. Completed tasks without a completedAt are kept.
func (t *Tracker) purgeExpiredTasks(now time.Time) int {
	removed := 0
	for _, sess := range t.store.List() {
		kept := sess.Tasks[:0]
		for _, task := range sess.Tasks {
			if task.Completed && task.CompletedAt != nil && now.Sub(*task.CompletedAt) >= t.taskTTL {
				removed++
				continue
			}
			kept = append(kept, task)
		}
		sess.Tasks = kept
	}
	return removed
}

// purgeExpiredSessions drops archived sessions untouched for sessionTTL
// whose tasks are all completed.
func (t *Tracker) purgeExpiredSessions(now time.Time) int {
	removed := 0
	for _, sess := range t.store.List() {
		if sess.Status != model.StatusStopped || now.Sub(sess.LastUpdated) < t.sessionTTL || !sess.AllTasksCompleted() {
			continue
		}
		t.store.Remove(sess.Directory)
		t.log.Info().Str("directory", sess.Directory).Time("last_updated", sess.LastUpdated).Msg("removed archived session")
		removed++
	}
	return removed
}

// StartSweeper launches a background goroutine that calls Sweep every
// interval. Call Stop to shut it down.
func (t *Tracker) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t.mu.Lock()
	if t.sweepStop != nil {
		t.mu.Unlock()
		return
	}
	t.sweepStop = make(chan struct{})
	t.sweepDone = make(chan struct{})
	stop, done := t.sweepStop, t.sweepDone
	t.mu.Unlock()

	go t.sweepLoop(interval, stop, done)
	t.log.Info().Dur("interval", interval).Msg("sweeper started")
}

// Stop shuts down the sweeper goroutine and waits for it to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, done := t.sweepStop, t.sweepDone
	t.sweepStop, t.sweepDone = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (t *Tracker) sweepLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}
