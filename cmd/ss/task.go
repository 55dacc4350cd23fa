package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/client"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Short:   "Manage a session's task list",
	GroupID: "tasks",
}

// taskDir resolves the --dir flag, defaulting to the current directory.
func taskDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		return resolveDir(nil)
	}
	return resolveDir([]string{dir})
}

// resolveTaskRef maps ref to a task id. A ref that is not an id of a task
// in dir but parses as N picks the N-th task (1-based) as listed.
func resolveTaskRef(ctx context.Context, dir, ref string) string {
	n, err := strconv.Atoi(ref)
	if err != nil || n <= 0 {
		return ref
	}
	sessions, err := ssClient.ListSessions(ctx)
	if err != nil {
		return ref
	}
	for _, s := range sessions {
		if s.Directory != dir {
			continue
		}
		if s.FindTask(ref) != nil {
			return ref
		}
		if n <= len(s.Tasks) {
			return s.Tasks[n-1].ID
		}
	}
	return ref
}

var taskAddCmd = &cobra.Command{
	Use:   "add <text>...",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := taskDir(cmd)
		if err != nil {
			return err
		}
		task, err := ssClient.AddTask(cmd.Context(), dir, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(task)
		}
		printTask(os.Stdout, task)
		return nil
	},
}

// newTaskToggleCmd builds "task done" and "task undo".
func newTaskToggleCmd(use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|N>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := taskDir(cmd)
			if err != nil {
				return err
			}
			done := completed
			task, err := ssClient.UpdateTask(cmd.Context(), &client.UpdateTaskRequest{
				Directory: dir,
				TaskID:    resolveTaskRef(cmd.Context(), dir, args[0]),
				Completed: &done,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(task)
			}
			printTask(os.Stdout, task)
			return nil
		},
	}
}

var (
	taskDoneCmd = newTaskToggleCmd("done", "Mark a task completed", true)
	taskUndoCmd = newTaskToggleCmd("undo", "Reopen a completed task", false)
)

var taskEditCmd = &cobra.Command{
	Use:   "edit <id|N> <text>...",
	Short: "Replace a task's text",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := taskDir(cmd)
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		task, err := ssClient.UpdateTask(cmd.Context(), &client.UpdateTaskRequest{
			Directory: dir,
			TaskID:    resolveTaskRef(cmd.Context(), dir, args[0]),
			Text:      &text,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(task)
		}
		printTask(os.Stdout, task)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <id|N>",
	Aliases: []string{"remove"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := taskDir(cmd)
		if err != nil {
			return err
		}
		id := resolveTaskRef(cmd.Context(), dir, args[0])
		if err := ssClient.DeleteTask(cmd.Context(), dir, id); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"deleted": id})
		}
		fmt.Printf("Deleted task %s\n", id)
		return nil
	},
}

func init() {
	taskCmd.PersistentFlags().String("dir", "", "session directory (default: current directory)")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskUndoCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskRmCmd)
}
