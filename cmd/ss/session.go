package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/client"
	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// resolveDir returns the absolute directory named by args[0], or the
// current directory when args is empty.
func resolveDir(args []string) (string, error) {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving current directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	return abs, nil
}

var registerCmd = &cobra.Command{
	Use:     "register [dir]",
	Short:   "Register a session for a directory (default: current)",
	GroupID: "sessions",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveDir(args)
		if err != nil {
			return err
		}
		source, _ := cmd.Flags().GetString("source")

		sess, err := ssClient.RegisterSession(cmd.Context(), &client.RegisterSessionRequest{
			Directory: dir,
			Source:    source,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(sess)
		}
		fmt.Printf("Registered %s\n", sess.Directory)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update [dir]",
	Short:   "Update a session's status, summary, or issues",
	GroupID: "sessions",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveDir(args)
		if err != nil {
			return err
		}

		req := &client.UpdateSessionRequest{Directory: dir}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			status := model.Status(v)
			if !status.IsValid() {
				return fmt.Errorf("invalid status %q (must be idle, busy, waiting, or stopped)", v)
			}
			req.Status = &status
		}
		if cmd.Flags().Changed("summary") {
			v, _ := cmd.Flags().GetString("summary")
			req.Summary = &v
		}
		if cmd.Flags().Changed("issue") || cmd.Flags().Changed("clear-issues") {
			raw, _ := cmd.Flags().GetStringArray("issue")
			issues, err := parseIssues(raw)
			if err != nil {
				return err
			}
			req.GitHubIssues = &issues
		}
		if req.Status == nil && req.Summary == nil && req.GitHubIssues == nil {
			return fmt.Errorf("nothing to update: pass --status, --summary, --issue, or --clear-issues")
		}

		sess, err := ssClient.UpdateSession(cmd.Context(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(sess)
		}
		printSession(os.Stdout, sess)
		return nil
	},
}

// parseIssues parses --issue values of the form N or N=URL.
func parseIssues(raw []string) ([]model.GitHubIssue, error) {
	issues := make([]model.GitHubIssue, 0, len(raw))
	for _, r := range raw {
		num, url, _ := strings.Cut(r, "=")
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(num), "#"))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid issue %q (want N or N=URL)", r)
		}
		issues = append(issues, model.GitHubIssue{Number: n, URL: url})
	}
	return issues, nil
}

// newStatusCmd builds a command that sets one fixed status.
func newStatusCmd(use, short string, status model.Status, verb string) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [dir]",
		Short:   short,
		GroupID: "sessions",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args)
			if err != nil {
				return err
			}
			st := status
			sess, err := ssClient.UpdateSession(cmd.Context(), &client.UpdateSessionRequest{
				Directory: dir,
				Status:    &st,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(sess)
			}
			fmt.Printf("%s %s\n", verb, sess.Directory)
			return nil
		},
	}
}

var (
	archiveCmd = newStatusCmd("archive", "Archive a session (status stopped)", model.StatusStopped, "Archived")
	restoreCmd = newStatusCmd("restore", "Restore an archived session to idle", model.StatusIdle, "Restored")
)

var removeCmd = &cobra.Command{
	Use:     "remove [dir]",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a session",
	GroupID: "sessions",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveDir(args)
		if err != nil {
			return err
		}
		if err := ssClient.DeleteSession(cmd.Context(), dir); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"removed": dir})
		}
		fmt.Printf("Removed %s\n", dir)
		return nil
	},
}

func init() {
	registerCmd.Flags().String("source", "", "registration source (startup, resume, clear, compact)")

	updateCmd.Flags().String("status", "", "session status (idle, busy, waiting, stopped)")
	updateCmd.Flags().String("summary", "", "one-line summary of the current work")
	updateCmd.Flags().StringArray("issue", nil, "linked GitHub issue as N or N=URL (repeatable, replaces the list)")
	updateCmd.Flags().Bool("clear-issues", false, "remove all linked issues")
	setFlagAliases(updateCmd.Flags(), updateFlagAliases)
}
