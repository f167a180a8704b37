package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/yieldpilot/internal/api"
	"github.com/wonny/yieldpilot/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                         - Health check
  GET  /api/yield/status               - Coordinator processing state
  GET  /api/yield/snapshots            - Latest yield snapshot per basket
  POST /api/yield/cycle                - Trigger an aggregation cycle
  POST /api/rebalance/{userID}         - Evaluate and maybe rebalance one user
  GET  /api/rebalance/{userID}/basket  - User's basket-of-record

Example:
  go run ./cmd/yieldpilot api
  go run ./cmd/yieldpilot api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== YieldPilot API Server ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	yieldHandler := handlers.NewYieldHandler(a.coordinator, a.log)
	rebalanceHandler := handlers.NewRebalanceHandler(a.gate, a.portfolio, a.log)

	router := api.NewRouter(yieldHandler, rebalanceHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
