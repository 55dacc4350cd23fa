package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/events"
	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/ui"
)

// errWatchDone ends a stream after the first frame in --once mode.
var errWatchDone = errors.New("watch done")

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream session changes as they happen",
	GroupID: "sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := &sessionWatcher{out: os.Stdout, seen: make(map[string]time.Time), now: time.Now}

		if natsURL != "" {
			return watchNATS(ctx, natsURL, w, once)
		}

		err := ssClient.Stream(ctx, func(sessions []model.Session) error {
			w.frame(sessions)
			if once {
				return errWatchDone
			}
			return nil
		})
		if errors.Is(err, errWatchDone) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// watchNATS follows change events on the bus instead of the HTTP stream.
func watchNATS(ctx context.Context, natsURL string, w *sessionWatcher, once bool) error {
	log := cliLogger("info").With().Str("nats_url", natsURL).Logger()
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	return followEvents(ctx, sub, w, once)
}

// followEvents prints every sessions-changed event from sub until ctx ends.
func followEvents(ctx context.Context, sub events.Subscriber, w *sessionWatcher, once bool) error {
	ch, cancel, err := sub.Subscribe(events.TopicSessionsChanged)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var ev events.SessionsChanged
			if err := json.Unmarshal(raw, &ev); err != nil {
				fmt.Fprintf(os.Stderr, "skipping bad event: %v\n", err)
				continue
			}
			w.frame(ev.Sessions)
			if once {
				return nil
			}
		}
	}
}

// sessionWatcher prints what changed between consecutive full-state frames.
type sessionWatcher struct {
	out  io.Writer
	seen map[string]time.Time
	now  func() time.Time
}

func (w *sessionWatcher) frame(sessions []model.Session) {
	if jsonOutput {
		if sessions == nil {
			sessions = []model.Session{}
		}
		data, err := json.Marshal(sessions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			return
		}
		fmt.Fprintln(w.out, string(data))
		return
	}

	changed, removed := diffSessions(sessions, w.seen)
	stamp := ui.RenderMuted(w.now().Format("15:04:05"))
	for _, s := range changed {
		line := fmt.Sprintf("%s  %-14s  %s", stamp, ui.RenderStatus(s.Status), s.Directory)
		if s.Summary != "" {
			line += "  " + s.Summary
		}
		fmt.Fprintln(w.out, line)
	}
	for _, dir := range removed {
		fmt.Fprintf(w.out, "%s  %-14s  %s\n", stamp, ui.RenderMuted("Removed"), dir)
	}
}

// diffSessions returns sessions that are new or whose lastUpdated moved,
// and directories that disappeared. It updates seen in place.
func diffSessions(sessions []model.Session, seen map[string]time.Time) ([]model.Session, []string) {
	var changed []model.Session
	present := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		present[s.Directory] = true
		prev, ok := seen[s.Directory]
		if !ok || !s.LastUpdated.Equal(prev) {
			changed = append(changed, s)
		}
		seen[s.Directory] = s.LastUpdated
	}
	var removed []string
	for dir := range seen {
		if !present[dir] {
			removed = append(removed, dir)
			delete(seen, dir)
		}
	}
	return changed, removed
}

func init() {
	watchCmd.Flags().String("nats", "", "follow change events from this NATS server instead of the HTTP stream")
	watchCmd.Flags().Bool("once", false, "print the current state and exit")
}
