package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/carlaview/internal/config"
	"github.com/vovakirdan/carlaview/internal/storage"
)

// loadConfig reads the configuration and applies the global overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, _, err := config.NewLoader().Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	applyOverrides(cmd, &cfg)
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Simulator.Backend = flagBackend
	}
	if flags.Changed("host") {
		cfg.Simulator.Host = flagHost
	}
	if flags.Changed("port") {
		cfg.Simulator.Port = flagPort
	}
	if flags.Changed("db") {
		cfg.Storage.Path = flagDBPath
	}
}

// newLogger builds the command logger. The returned func closes the log
// file, if any.
func newLogger(fallback io.Writer) (*log.Logger, func(), error) {
	out := fallback
	closeFn := func() {}
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          "carlaview",
	})
	if flagDebug {
		logger.SetLevel(log.DebugLevel)
	}
	log.SetDefault(logger)
	return logger, closeFn, nil
}

func openStore(cfg config.Config) (*storage.Store, error) {
	path := cfg.Storage.Path
	if path == "" {
		path = storage.DefaultPath()
	}
	return storage.Open(path)
}

// parseRes parses a WIDTHxHEIGHT window size.
func parseRes(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q, expected WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution height %q", hs)
	}
	return w, h, nil
}

// terminalSize returns the size of stdout, or 80x24 when it is not a
// terminal.
func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}
