// carlaview drives a simulated vehicle and shows its sensors.
//
// Usage:
//
//	carlaview sensors           - Spawn a vehicle and show its sensor grid
//	carlaview manual            - Drive an existing vehicle from the keyboard
//	carlaview drive             - Follow the lane with a trained model
//	carlaview sessions          - Browse recorded telemetry
//	carlaview plot <session>    - Plot a recorded session
//	carlaview serve             - Start the SSH session browser
//	carlaview backends          - List simulator backends
//	carlaview config            - Print or write the configuration
//
// Global flags:
//
//	--config <path>  - Configuration file (default: search path)
//	--backend <name> - Simulator backend (default: from config)
//	--host, --port   - Simulator address
//	--db <path>      - Telemetry database (default: ~/.carlaview/telemetry.db)
//	--debug          - Debug logging
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Import backends to register them
	_ "github.com/vovakirdan/carlaview/internal/sim/fake"
)

var (
	// Global flags
	flagConfig  string
	flagBackend string
	flagHost    string
	flagPort    int
	flagDBPath  string
	flagDebug   bool
	flagLogFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "carlaview",
	Short: "carlaview - Sensor grid and vehicle control for a driving simulator",
	Long: `carlaview connects to a driving simulator, spawns a vehicle with
cameras, lidars and radar, and shows every sensor in one window.

Available commands:
  sensors   - Sensor grid with an autopilot or idle vehicle
  manual    - Keyboard control of an existing vehicle
  drive     - Lane following from a camera model
  sessions  - Browse recorded telemetry
  plot      - Plot a recorded session
  serve     - SSH server for browsing sessions
  backends  - List simulator backends
  config    - Print or write the configuration

Examples:
  carlaview sensors --surface tui
  carlaview drive --model lane.onnx
  carlaview manual --spawn
  carlaview sessions
  carlaview plot 1b4e28ba --html`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Simulator backend (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "Simulator host (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "Simulator port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to telemetry database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to a file instead of stderr")

	// Add subcommands
	rootCmd.AddCommand(sensorsCmd)
	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(driveCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(configCmd)
}
