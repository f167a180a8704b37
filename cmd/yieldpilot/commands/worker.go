package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/yieldpilot/internal/external/market"
	"github.com/wonny/yieldpilot/internal/scheduler"
	"github.com/wonny/yieldpilot/internal/scheduler/jobs"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Starts the background worker: the cron scheduler plus the
live ticker stream.

Scheduled jobs:
  yield_cycle - aggregation cycle every 5 minutes

The ticker stream keeps the current-price cache warm between cycles.
Stop with Ctrl+C.

Example:
  go run ./cmd/yieldpilot worker
  go run ./cmd/yieldpilot worker --run-now
  go run ./cmd/yieldpilot worker --no-stream`,
	RunE: runWorker,
}

var (
	workerNoStream bool
	workerRunNow   bool
)

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().BoolVar(&workerNoStream, "no-stream", false, "disable the ticker stream")
	workerCmd.Flags().BoolVar(&workerRunNow, "run-now", false, "run the cycle job immediately on startup")
}

func runWorker(cmd *cobra.Command, args []string) error {
	fmt.Println("=== YieldPilot Worker ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.log)

	cycleJob := jobs.NewCycleJob(a.coordinator, a.auditor, a.log)
	if err := sched.AddJob(cycleJob); err != nil {
		return fmt.Errorf("register cycle job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	fmt.Println("\nScheduled jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  %s\n", name)
	}

	if workerRunNow {
		if err := sched.RunJob(cycleJob.Name()); err != nil {
			return fmt.Errorf("run cycle job: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stream *market.Stream
	if !workerNoStream && a.cfg.Market.StreamURL != "" {
		stream = market.NewStream(a.cfg, a.cache, a.log)
		if err := stream.Start(ctx); err != nil {
			// The stream is an optimization; the cycle works without it
			a.log.WithError(err).Warn("Ticker stream unavailable, continuing without it")
			stream = nil
		}
	}

	fmt.Println("\nWorker running. Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down worker")
	if stream != nil {
		stream.Stop()
	}

	if history, err := sched.GetJobHistory(cycleJob.Name()); err == nil && len(history.Results) > 0 {
		fmt.Printf("\nCycle job: %d runs, %.0f%% success\n",
			len(history.Results), history.GetSuccessRate()*100)
	}

	return nil
}
