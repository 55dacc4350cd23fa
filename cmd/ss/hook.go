package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/hooks"
	"github.com/alfredjeanlab/secondscreen/internal/logging"
)

// hookTimeout bounds the whole hook so a down server never stalls the assistant.
const hookTimeout = 2 * time.Second

var hookCmd = &cobra.Command{
	Use:     "hook",
	Short:   "Apply an assistant hook event read from stdin",
	Long: `Reads a hook event JSON object from stdin and reports it to the dashboard:

  SessionStart                   register the session (source is passed through)
  UserPromptSubmit, PreToolUse   status busy
  Notification                   status waiting
  Stop, SessionEnd               status idle

Other events are ignored. The command always exits 0 so a missing or
unreachable server never interrupts the assistant; problems are reported on
stderr.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cliLogger("warn")

		ev, err := hooks.ParseEvent(cmd.InOrStdin())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ss hook: %v\n", err)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), hookTimeout)
		defer cancel()

		wd, _ := os.Getwd()
		if err := hooks.NewHandler(ssClient, log).Handle(ctx, ev, wd); err != nil {
			fmt.Fprintf(os.Stderr, "ss hook: %v\n", err)
		}
		return nil
	},
}

// cliLogger returns the console logger client commands write to stderr
// with. SS_LOG_LEVEL overrides level.
func cliLogger(level string) zerolog.Logger {
	return logging.New(logging.Options{
		Level:  envOrDefault("SS_LOG_LEVEL", level),
		Format: "console",
		Out:    os.Stderr,
	})
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
