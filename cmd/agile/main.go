// Package main is the entry point for the Agile Dashboard TUI application.
// It initializes configuration, services, and runs the Bubble Tea program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/agile-dashboard-tui/internal/config"
	"github.com/j-veylop/agile-dashboard-tui/internal/services"
	"github.com/j-veylop/agile-dashboard-tui/internal/ui"
	"github.com/j-veylop/agile-dashboard-tui/internal/version"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Handle help flag
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run contains the main application logic, separated for cleaner error handling.
func run() error {
	// 1. Load configuration from .env files and environment variables
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize the service manager
	// This opens the rate database and starts the settings watcher
	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// Ensure cleanup on exit
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	// 3. Create the root Bubble Tea model
	model := ui.NewModel(svcManager, cfg)

	// 4. Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 5. Create and configure the Bubble Tea program
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(), // Use alternate screen buffer (full terminal)
	)

	// 6. Handle signals in a separate goroutine
	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	// 7. Run the TUI program
	// This blocks until the user quits or an error occurs
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// printUsage prints the command-line usage information.
func printUsage() {
	fmt.Println(`Agile Dashboard TUI - Octopus Agile half-hourly rate monitor

Usage:
  agile [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  r               Force a rate refresh
  p               Toggle pence / pounds display
  q, Ctrl+C       Quit

Environment Variables:
  DATABASE_PATH     SQLite database path
  SETTINGS_PATH     Settings JSON file path
  API_BASE_URL      Tariff API base URL
  PRODUCT_CODE      Agile product code (default: AGILE-24-10-01)
  HTTP_TIMEOUT      API request timeout (default: 30s)
  REFRESH_INTERVAL  Coverage poll interval (default: 1m)
  CHART_HOURS       Hours of prices shown on the chart (default: 24)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/agile-dashboard/.env
  - ~/.agile-dashboard/.env

For more information, visit: https://github.com/j-veylop/agile-dashboard-tui`)
}
