// Package tui provides the Bubble Tea integration for carlaview: a
// terminal surface for the sensor grid, a browser for recorded sessions
// and an SSH spectator server.
package tui

import (
	"image"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/carlaview/internal/core"
)

type frameMsg string

type statusMsg string

// terminalModel shows the latest rendered frame with a status line.
type terminalModel struct {
	keys   *KeyMapper
	held   *core.HeldKeys
	size   *termSize
	frame  string
	status string
}

type termSize struct {
	mu            sync.Mutex
	width, height int
}

func (s *termSize) set(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = w, h
}

func (s *termSize) get() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (m terminalModel) Init() tea.Cmd {
	return nil
}

func (m terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if action, _ := m.keys.MapKey(msg); action != core.ActionNone {
			m.held.Press(action)
		}
	case tea.WindowSizeMsg:
		m.size.set(msg.Width, msg.Height)
	case frameMsg:
		m.frame = string(msg)
	case statusMsg:
		m.status = string(msg)
	}
	return m, nil
}

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

func (m terminalModel) View() string {
	help := "W/A/S/D: drive  |  Space: handbrake  |  Q: quit"
	if m.status != "" {
		help = m.status + "  |  " + help
	}
	return m.frame + "\n" + statusStyle.Render(help)
}

// Terminal is a display.Surface and display.InputSource that draws the
// canvas in the terminal with half-block characters.
type Terminal struct {
	program *tea.Program
	held    *core.HeldKeys
	size    *termSize

	done    chan struct{}
	err     error
	closeMu sync.Once
}

// NewTerminal starts a Bubble Tea program on the alternate screen.
// Extra options are passed to the program, e.g. tea.WithInput for tests.
func NewTerminal(opts ...tea.ProgramOption) *Terminal {
	t := &Terminal{
		held: core.NewHeldKeys(core.DefaultHold),
		size: &termSize{width: 80, height: 24},
		done: make(chan struct{}),
	}
	model := terminalModel{keys: NewKeyMapper(), held: t.held, size: t.size}
	t.program = tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	go func() {
		_, t.err = t.program.Run()
		t.held.Press(core.ActionQuit)
		close(t.done)
	}()
	return t
}

// Present renders the canvas to fit the terminal, leaving a status row.
func (t *Terminal) Present(canvas *image.RGBA) error {
	select {
	case <-t.done:
		return nil
	default:
	}
	w, h := t.size.get()
	t.program.Send(frameMsg(RenderCanvas(canvas, w, max(h-1, 1))))
	return nil
}

// SetStatus replaces the status line.
func (t *Terminal) SetStatus(text string) {
	t.program.Send(statusMsg(text))
}

// Poll implements display.InputSource.
func (t *Terminal) Poll() core.InputFrame {
	return t.held.Poll()
}

// Close stops the program and restores the terminal.
func (t *Terminal) Close() error {
	t.closeMu.Do(func() {
		t.program.Quit()
	})
	<-t.done
	return t.err
}
