package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/broadcast"
	"github.com/vovakirdan/carlaview/internal/platform/tui"
)

var (
	flagSSHAddr string
	flagHostKey string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the carlaview SSH server",
	Long: `Start an SSH server for browsing recorded sessions remotely.

Live runs stream to spectators with 'carlaview sensors --spectate :23234'.
This server has no live run and shows only the session browser.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.carlaview/host_key

Examples:
  carlaview serve                     # Listen on the configured address
  carlaview serve --ssh :2222         # Listen on port 2222
  carlaview serve --db ./telemetry.db # Use specific database

Users can connect with:
  ssh localhost -p 23234`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (overrides config)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flagSSHAddr != "" {
		cfg.Serve.Address = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.Serve.HostKeyPath = flagHostKey
	}

	logger, closeLog, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := broadcast.NewHub(broadcast.DefaultBuffer)
	hub.Announce("no live run on this server")
	defer hub.Close()

	server, err := tui.NewSSHServer(tui.SSHServerConfig{
		Address:     cfg.Serve.Address,
		HostKeyPath: cfg.Serve.HostKeyPath,
		IdleTimeout: cfg.Serve.IdleTimeout,
	}, hub, store, logger.WithPrefix("carlaview-ssh"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	fmt.Printf("Starting carlaview SSH server on %s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	return server.ListenAndServe(cmd.Context())
}
