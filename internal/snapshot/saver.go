package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// DefaultDebounce is how long the Saver waits after the last Schedule.
const DefaultDebounce = time.Second

// mirrorTimeout bounds each best-effort destination write.
const mirrorTimeout = 10 * time.Second

// Destination is an additional place the encoded snapshot is copied to
// after every successful save.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}

// SnapshotFunc returns the sessions to persist at save time.
type SnapshotFunc func() []model.Session

// Saver coalesces bursts of changes into a single write. Each Schedule
// restarts the debounce window; when the window elapses the Saver pulls a
// fresh snapshot and writes it.
type Saver struct {
	file     *File
	snapshot SnapshotFunc
	delay    time.Duration
	dests    []Destination
	log      zerolog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	pending  bool
	stopped  bool
	inflight chan struct{}

	saveMu sync.Mutex
}

// SaverOptions configures a Saver.
type SaverOptions struct {
	Debounce     time.Duration
	Destinations []Destination
	Logger       zerolog.Logger
}

// NewSaver creates a saver writing snapshots from fn into file.
func NewSaver(file *File, fn SnapshotFunc, opts SaverOptions) *Saver {
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Saver{
		file:     file,
		snapshot: fn,
		delay:    delay,
		dests:    opts.Destinations,
		log:      opts.Logger.With().Str("component", "snapshot").Logger(),
	}
}

// Schedule starts or restarts the debounce window. It reports false once
// the saver is stopped.
func (s *Saver) Schedule() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	return true
}

// Pending reports whether a save is waiting for its window to elapse.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	done := make(chan struct{})
	s.inflight = done
	s.mu.Unlock()

	defer func() {
		close(done)
		s.mu.Lock()
		if s.inflight == done {
			s.inflight = nil
		}
		s.mu.Unlock()
	}()

	if err := s.save(); err != nil {
		s.log.Error().Err(err).Msg("debounced save failed")
		// Leave the state dirty so Flush and Stop retry it.
		s.mu.Lock()
		if gen == s.gen {
			s.pending = true
		}
		s.mu.Unlock()
	}
}

// Flush cancels a pending window and saves synchronously. Without a
// pending save it waits for any in-flight write and returns nil.
func (s *Saver) Flush() error {
	s.mu.Lock()
	if !s.pending {
		inflight := s.inflight
		s.mu.Unlock()
		if inflight != nil {
			<-inflight
		}
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.gen++
	s.mu.Unlock()

	return s.save()
}

// Stop flushes and refuses further schedules.
func (s *Saver) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	err := s.Flush()
	if err != nil {
		s.log.Error().Err(err).Msg("final save failed")
	}
	return err
}

// SaveNow writes the current snapshot immediately, regardless of any
// pending window.
func (s *Saver) SaveNow() error {
	return s.save()
}

func (s *Saver) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	sessions := s.snapshot()
	data, err := Marshal(sessions)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.file.Path, Err: err}
	}
	if err := s.file.Write(data); err != nil {
		return err
	}
	s.log.Debug().Int("sessions", len(sessions)).Int("bytes", len(data)).Msg("snapshot saved")

	for i, dest := range s.dests {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		if err := dest.Write(ctx, data); err != nil {
			s.log.Warn().Err(err).Int("destination", i).Msg("snapshot mirror failed")
		}
		cancel()
	}
	return nil
}
