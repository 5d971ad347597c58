package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/carlaview/internal/broadcast"
	"github.com/vovakirdan/carlaview/internal/storage"
)

// SSHServerConfig holds configuration for the spectator server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.carlaview/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
	}
}

// SSHServer lets remote terminals watch the live sensor grid and browse
// recorded sessions.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	hub    *broadcast.Hub
	store  *storage.Store // may be nil
	logger *log.Logger
}

// NewSSHServer creates a spectator server for hub. store may be nil, in
// which case the session browser shows no sessions.
func NewSSHServer(cfg SSHServerConfig, hub *broadcast.Hub, store *storage.Store, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "carlaview-ssh",
		})
	}

	srv := &SSHServer{
		config: cfg,
		hub:    hub,
		store:  store,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".carlaview", "host_key")
	}
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	model := NewSpectatorModel(s.hub, s.store, sshSession.User(), pty.Window.Width, pty.Window.Height)
	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("spectator joined",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("spectator left",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errc := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

type spectatorView int

const (
	viewMenu spectatorView = iota
	viewLive
	viewSessions
)

// SpectatorModel manages one spectator: menu -> live view or session
// browser -> menu.
type SpectatorModel struct {
	hub      *broadcast.Hub
	store    *storage.Store
	username string
	width    int
	height   int
	view     spectatorView
	menu     MenuModel
	live     LiveModel
	sessions SessionsModel
	quitting bool
}

// NewSpectatorModel creates a spectator session model.
func NewSpectatorModel(hub *broadcast.Hub, store *storage.Store, username string, width, height int) SpectatorModel {
	return SpectatorModel{
		hub:      hub,
		store:    store,
		username: username,
		width:    width,
		height:   height,
		menu:     newSpectatorMenu(width, height),
	}
}

func newSpectatorMenu(width, height int) MenuModel {
	return NewMenuModel("  C A R L A V I E W  ", []MenuItem{
		{ID: MenuLive, Title: "Watch live"},
		{ID: MenuSessions, Title: "Recorded sessions"},
	}, width, height)
}

// Init initializes the session.
func (m SpectatorModel) Init() tea.Cmd {
	return m.menu.Init()
}

// Update handles messages for the session.
func (m SpectatorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.height = wsm.Height
	}

	switch m.view {
	case viewLive:
		return m.updateLive(msg)
	case viewSessions:
		return m.updateSessions(msg)
	}
	return m.updateMenu(msg)
}

func (m SpectatorModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.menu.Update(msg)
	if mm, ok := next.(MenuModel); ok {
		m.menu = mm
	}
	if m.menu.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	selected := m.menu.Selected()
	if selected == nil {
		return m, cmd
	}
	m.menu = newSpectatorMenu(m.width, m.height)
	switch selected.ID {
	case MenuLive:
		m.live = NewLiveModel(m.hub, m.username, m.width, m.height)
		m.view = viewLive
		return m, m.live.Init()
	case MenuSessions:
		m.sessions = NewSessionsModel(m.store, m.width, m.height)
		m.view = viewSessions
		return m, m.sessions.Init()
	}
	return m, cmd
}

func (m SpectatorModel) updateLive(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.live.Update(msg)
	if lm, ok := next.(LiveModel); ok {
		m.live = lm
	}
	if m.live.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}
	if m.live.BackToMenu() {
		m.view = viewMenu
		return m, nil
	}
	return m, cmd
}

// updateSessions intercepts the browser's tea.Quit on back so the
// spectator returns to the menu instead of disconnecting.
func (m SpectatorModel) updateSessions(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.sessions.Update(msg)
	if sm, ok := next.(SessionsModel); ok {
		m.sessions = sm
	}
	if m.sessions.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}
	if m.sessions.IsGoingBack() {
		m.view = viewMenu
		return m, nil
	}
	return m, cmd
}

// View renders the current view.
func (m SpectatorModel) View() string {
	if m.quitting {
		return ""
	}
	switch m.view {
	case viewLive:
		return m.live.View()
	case viewSessions:
		return m.sessions.View()
	}
	return m.menu.View()
}
