package tui

import (
	"image"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/carlaview/internal/broadcast"
)

type liveEventMsg struct {
	evt broadcast.Event
}

// waitEvent blocks until the viewer's next event.
func waitEvent(v *broadcast.Viewer) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt := <-v.Events():
			return liveEventMsg{evt: evt}
		case <-v.Done():
			return nil
		}
	}
}

// LiveModel shows the broadcast canvas to one spectator.
type LiveModel struct {
	viewer    *broadcast.Viewer
	keyMapper *KeyMapper
	frame     *image.RGBA
	status    string
	ended     bool
	width     int
	height    int
	back      bool
	quitting  bool
}

// NewLiveModel subscribes to hub as name.
func NewLiveModel(hub *broadcast.Hub, name string, width, height int) LiveModel {
	return LiveModel{
		viewer:    hub.Subscribe(name),
		keyMapper: NewKeyMapper(),
		width:     width,
		height:    height,
	}
}

// Init starts receiving events.
func (m LiveModel) Init() tea.Cmd {
	return waitEvent(m.viewer)
}

// Update handles hub events and keys.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case liveEventMsg:
		switch evt := msg.evt.(type) {
		case broadcast.FrameEvent:
			m.frame = evt.Canvas
		case broadcast.StatusEvent:
			m.status = evt.Text
		case broadcast.ClosedEvent:
			m.ended = true
			return m, nil
		}
		return m, waitEvent(m.viewer)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.keyMapper.MapKeyToMenuAction(msg) {
		case MenuActionQuit:
			m.viewer.Close()
			m.quitting = true
			return m, tea.Quit
		case MenuActionBack:
			m.viewer.Close()
			m.back = true
			return m, nil
		}
	}
	return m, nil
}

// View renders the latest frame with a status line.
func (m LiveModel) View() string {
	if m.quitting {
		return ""
	}
	status := m.status
	switch {
	case m.ended:
		status = "broadcast ended"
	case m.frame == nil:
		status = "waiting for frames"
	}
	line := statusStyle.Render(status + "  |  Esc: back  |  Q: quit")
	if m.frame == nil {
		return "\n" + centerText(line, m.width)
	}
	return RenderCanvas(m.frame, m.width, max(m.height-1, 1)) + "\n" + line
}

// BackToMenu returns true if the spectator left the live view.
func (m LiveModel) BackToMenu() bool {
	return m.back
}

// IsQuitting returns true if the spectator quit.
func (m LiveModel) IsQuitting() bool {
	return m.quitting
}
