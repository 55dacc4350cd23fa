package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/ui"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// sortSessions orders sessions for display: waiting first, archived last,
// most recently updated first within a status.
func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		ri, rj := sessions[i].Status.SortRank(), sessions[j].Status.SortRank()
		if ri != rj {
			return ri < rj
		}
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})
}

func printSessionTable(w io.Writer, sessions []model.Session, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No sessions."))
		return
	}
	sortSessions(sessions)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tDIRECTORY\tTASKS\tUPDATED\tSUMMARY")
	for _, s := range sessions {
		summary := s.Summary
		if len(summary) > 60 {
			summary = summary[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			ui.RenderStatus(s.Status),
			s.DirectoryName,
			taskCounts(s.Tasks),
			formatAge(now.Sub(s.LastUpdated)),
			summary,
		)
	}
	tw.Flush()
}

func printSession(w io.Writer, s *model.Session) {
	fmt.Fprintf(w, "Directory:   %s\n", s.Directory)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderStatus(s.Status))
	if s.Summary != "" {
		fmt.Fprintf(w, "Summary:     %s\n", s.Summary)
	}
	if len(s.GitHubIssues) > 0 {
		issues := make([]string, len(s.GitHubIssues))
		for i, is := range s.GitHubIssues {
			issues[i] = fmt.Sprintf("#%d", is.Number)
		}
		fmt.Fprintf(w, "Issues:      %s\n", strings.Join(issues, ", "))
	}
	for _, t := range s.Tasks {
		printTask(w, &t)
	}
}

func printTask(w io.Writer, t *model.Task) {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%s %s %s\n", mark, ui.RenderMuted(t.ID), t.Text)
}

func taskCounts(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "-"
	}
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(tasks))
}

// formatAge renders a duration the way the dashboard shows it.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
