package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/internal/rebalance"
)

// rebalanceCmd represents the rebalance command
var rebalanceCmd = &cobra.Command{
	Use:   "rebalance [user_id]",
	Short: "Evaluate a user against the latest recommendation",
	Long: `Evaluates one user's basket against the latest recommendation
and executes the swap when the recommendation clears the confidence
gate.

Example:
  go run ./cmd/yieldpilot rebalance user-42`,
	Args: cobra.ExactArgs(1),
	RunE: runRebalance,
}

func init() {
	rootCmd.AddCommand(rebalanceCmd)
}

func runRebalance(cmd *cobra.Command, args []string) error {
	fmt.Println("=== YieldPilot Rebalance ===")

	userID := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	decision, err := a.gate.Evaluate(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, rebalance.ErrUserNotFound):
			fmt.Printf("Unknown user: %s\n", userID)
			return nil
		case errors.Is(err, rebalance.ErrNoRecommendation):
			fmt.Println("No recommendation available yet. Run a cycle first.")
			return nil
		}
		return fmt.Errorf("evaluate rebalance: %w", err)
	}

	fmt.Printf("\nUser:   %s\n", decision.UserID)
	fmt.Printf("Basket: %d -> %d\n", decision.FromBasketID, decision.ToBasketID)
	fmt.Printf("Reason: %s\n", decision.Reason)

	switch decision.Reason {
	case contracts.ReasonAlreadyOptimal:
		fmt.Println("Already on the recommended basket, nothing to do")
	case contracts.ReasonLowConfidence:
		fmt.Println("Recommendation confidence below the execution threshold")
	case contracts.ReasonTriggered:
		if decision.Executed {
			fmt.Printf("Swap executed (tx %s)\n", decision.TxReference)
		} else {
			fmt.Printf("Swap FAILED: %s\n", decision.Error)
		}
	}

	return nil
}
