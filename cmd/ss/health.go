package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/client"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check that the dashboard server is up",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetDuration("wait")

		resp, err := waitHealthy(cmd.Context(), wait)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			return printJSON(resp)
		}
		fmt.Printf("Health: %s (%d sessions, %d observers)\n", resp.Status, resp.Sessions, resp.Observers)
		if resp.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", resp.Status)
		}
		return nil
	},
}

// waitHealthy polls the health endpoint until it answers or wait elapses.
func waitHealthy(ctx context.Context, wait time.Duration) (*client.HealthResponse, error) {
	deadline := time.Now().Add(wait)
	for {
		resp, err := ssClient.Health(ctx)
		if err == nil || time.Now().After(deadline) {
			return resp, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func init() {
	healthCmd.Flags().Duration("wait", 0, "keep retrying until the server answers or this long has passed")
}
