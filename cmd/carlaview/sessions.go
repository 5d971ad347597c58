package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/platform/tui"
	"github.com/vovakirdan/carlaview/internal/report"
)

var (
	sessionsPlain bool
	sessionsLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse recorded sessions",
	Long: `Browse the sessions recorded by sensors, manual and drive runs.

Without --plain an interactive browser is started.

Examples:
  carlaview sessions
  carlaview sessions --plain --limit 5`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <session>",
	Short: "Delete a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsRm,
}

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsPlain, "plain", false, "Print a table instead of the interactive browser")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Number of sessions to list")
	sessionsCmd.AddCommand(sessionsRmCmd)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if !sessionsPlain {
		w, h := terminalSize()
		return tui.RunSessions(store, w, h)
	}

	sessions, err := store.Sessions(sessionsLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		fmt.Println()
		fmt.Println("Run 'carlaview sensors' or 'carlaview drive' to record one.")
		return nil
	}

	// Print header
	fmt.Printf("  %-8s  %-8s  %-8s  %-16s  %6s  %9s  %s\n", "ID", "Mode", "Backend", "Started", "Ticks", "Duration", "End")
	fmt.Printf("  %-8s  %-8s  %-8s  %-16s  %6s  %9s  %s\n", "--", "----", "-------", "-------", "-----", "--------", "---")

	for _, s := range sessions {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		end := s.EndReason
		if s.Running() {
			end = "running"
		}
		fmt.Printf("  %-8s  %-8s  %-8s  %-16s  %6d  %9s  %s\n",
			id, s.Mode, s.Backend,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Ticks, s.Duration().Round(time.Second), end)
	}

	fmt.Println()
	fmt.Println("Run 'carlaview plot <id>' to plot a session.")
	return nil
}

func runSessionsRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.FindSession(args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteSession(sess.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s (%s, %d ticks)\n", sess.ID, sess.Mode, sess.Ticks)
	return nil
}

// printSummary writes the telemetry summary of a session.
func printSummary(s report.Summary) {
	fmt.Printf("  Ticks:          %d\n", s.Ticks)
	fmt.Printf("  Mean speed:     %.1f km/h\n", s.MeanSpeedKPH)
	fmt.Printf("  Max speed:      %.1f km/h\n", s.MaxSpeedKPH)
	fmt.Printf("  Mean |steer|:   %.3f\n", s.MeanAbsSteer)
	fmt.Printf("  Steer std dev:  %.3f\n", s.SteerStdDev)
	fmt.Printf("  Braking:        %.0f%%\n", s.BrakeFraction*100)
}
