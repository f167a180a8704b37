package main

import (
	"os"

	"github.com/wonny/yieldpilot/cmd/yieldpilot/commands"
)

// main is the entry point for the YieldPilot CLI
// ⭐ unified CLI entry point: go run ./cmd/yieldpilot [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
