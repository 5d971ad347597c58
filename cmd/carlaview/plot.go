package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/report"
)

var (
	plotHTML   bool
	plotOutput string
)

var plotCmd = &cobra.Command{
	Use:   "plot <session>",
	Short: "Plot the telemetry of a recorded session",
	Long: `Write a PNG plot of speed and control inputs for a session, or an
interactive HTML page with --html. A unique ID prefix is enough.

Examples:
  carlaview plot 1b4e28ba
  carlaview plot 1b4e28ba --html -o run.html`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

func init() {
	plotCmd.Flags().BoolVar(&plotHTML, "html", false, "Write an interactive HTML chart")
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "Output file (default: <id>.png or <id>.html)")
}

func runPlot(cmd *cobra.Command, args []string) error {
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
	ticks, err := store.Ticks(sess.ID)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("session %s has no ticks", sess.ID)
	}

	path := plotOutput
	if path == "" {
		ext := ".png"
		if plotHTML {
			ext = ".html"
		}
		path = sess.ID[:min(8, len(sess.ID))] + ext
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if plotHTML {
		stats, serr := store.SensorStats(sess.ID)
		if serr != nil {
			f.Close()
			return serr
		}
		err = report.WriteHTML(f, sess, ticks, stats)
	} else {
		title := fmt.Sprintf("%s %s", sess.Mode, sess.StartedAt.Local().Format("2006-01-02 15:04"))
		err = report.WritePNG(f, title, ticks)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Printf("Session %s (%s)\n", sess.ID, sess.Mode)
	printSummary(report.Summarize(ticks))
	fmt.Println()
	fmt.Printf("Wrote %s\n", path)
	return nil
}
