package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked sessions",
	GroupID: "sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		sessions, err := ssClient.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if !all {
			sessions = activeSessions(sessions)
		}

		if jsonOutput {
			if sessions == nil {
				sessions = []model.Session{}
			}
			return printJSON(sessions)
		}
		printSessionTable(os.Stdout, sessions, time.Now())
		return nil
	},
}

// activeSessions drops archived sessions.
func activeSessions(sessions []model.Session) []model.Session {
	out := sessions[:0]
	for _, s := range sessions {
		if s.Status != model.StatusStopped {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	listCmd.Flags().BoolP("all", "a", false, "include archived sessions")
}
