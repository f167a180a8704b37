package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/yieldpilot/internal/engine"
)

// cycleCmd represents the cycle command
var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one aggregation cycle",
	Long: `Runs a single aggregation cycle and prints the result:
per-asset yield samples, basket snapshots, and the recommendation.

Example:
  go run ./cmd/yieldpilot cycle`,
	RunE: runCycleOnce,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycleOnce(cmd *cobra.Command, args []string) error {
	fmt.Println("=== YieldPilot Cycle ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := a.coordinator.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrCycleInProgress) {
			fmt.Println("A cycle is already in progress")
			return nil
		}
		return fmt.Errorf("run cycle: %w", err)
	}

	fmt.Printf("\nCycle completed in %s\n\n", result.Duration)

	fmt.Println("Asset yields:")
	for symbol, sample := range result.Samples {
		fmt.Printf("  %-6s %5d bp  (volatility %.4f, %s)\n",
			symbol, sample.YieldBp, sample.Volatility, sample.Provenance)
	}
	for _, symbol := range result.FailedSymbols {
		fmt.Printf("  %-6s FAILED\n", symbol)
	}

	fmt.Println("\nBasket snapshots:")
	for _, s := range result.Snapshots {
		def, _ := a.catalog.ByID(s.BasketID)
		fmt.Printf("  [%d] %-16s weighted %d bp, simple avg %d bp\n",
			s.BasketID, def.Name, s.WeightedYieldBp, s.SimpleAvgYieldBp)
	}

	if rec := result.Recommendation; rec != nil {
		fmt.Printf("\nRecommendation: basket %d (confidence %d, expected %d bp, risk %d)\n",
			rec.BasketID, rec.Confidence, rec.ExpectedYieldBp, rec.RiskScore)
		if rec.Fallback {
			fmt.Println("  (fallback recommendation)")
		}
	}

	return nil
}
