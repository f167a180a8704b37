package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status",
	Long: `Shows the coordinator processing state and the latest yield
snapshot per basket.

Example:
  go run ./cmd/yieldpilot status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== YieldPilot Status ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status := a.coordinator.Status()
	fmt.Printf("\nProcessing: %v\n", status.IsProcessing)
	if status.LastCompletion != nil {
		fmt.Printf("Last completion: %s (%s ago)\n",
			status.LastCompletion.Format(time.RFC3339),
			time.Since(*status.LastCompletion).Round(time.Second))
	} else {
		fmt.Println("Last completion: never")
	}

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Database: unhealthy (%v)\n", err)
	} else {
		fmt.Printf("Database: healthy (ping %s, %d/%d conns)\n",
			health.ResponseTime, health.Stats.TotalConns, health.Stats.MaxConns)
	}

	snapshots, err := a.coordinator.LatestSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("get latest snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("\nNo basket snapshots yet. Run a cycle first.")
		return nil
	}

	fmt.Println("\nLatest basket snapshots:")
	for _, s := range snapshots {
		def, _ := a.catalog.ByID(s.BasketID)
		fmt.Printf("  [%d] %-16s weighted %d bp, simple avg %d bp (computed %s)\n",
			s.BasketID, def.Name, s.WeightedYieldBp, s.SimpleAvgYieldBp,
			s.ComputedAt.Format(time.RFC3339))
	}

	return nil
}
