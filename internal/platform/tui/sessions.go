package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/carlaview/internal/report"
	"github.com/vovakirdan/carlaview/internal/storage"
)

// Browser layout constants
const (
	minWidthForDetail = 100 // Minimum width to show the detail pane beside the table
	detailWidth       = 36  // Width of the detail pane
	maxSessions       = 200 // Max sessions to load
)

// SessionsKeyMap defines the key bindings for the session browser.
type SessionsKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Detail  key.Binding
	Refresh key.Binding
	Back    key.Binding
	Quit    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k SessionsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Detail, k.Refresh, k.Back}
}

// FullHelp returns key bindings for the full help view.
func (k SessionsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Detail},
		{k.Refresh, k.Back, k.Quit},
	}
}

// DefaultSessionsKeyMap returns default key bindings.
func DefaultSessionsKeyMap() SessionsKeyMap {
	return SessionsKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Detail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// sessionDetail is the summary shown for the selected session.
type sessionDetail struct {
	session storage.Session
	summary report.Summary
	stats   []storage.SensorStat
	err     error
}

// SessionsModel is the Bubble Tea model for browsing recorded sessions.
type SessionsModel struct {
	store     *storage.Store
	sessions  []storage.Session
	loadErr   error
	detail    *sessionDetail
	table     table.Model
	help      help.Model
	keys      SessionsKeyMap
	width     int
	height    int
	quitting  bool
	goingBack bool
}

// NewSessionsModel creates a new session browser.
func NewSessionsModel(store *storage.Store, width, height int) SessionsModel {
	h := help.New()
	h.ShowAll = false

	m := SessionsModel{
		store:  store,
		keys:   DefaultSessionsKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	m.loadSessions()
	return m
}

func (m SessionsModel) showDetailPane() bool {
	return m.width >= minWidthForDetail
}

// createTable creates a new table with appropriate columns.
func (m *SessionsModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Session", Width: 8},
		{Title: "Mode", Width: 8},
		{Title: "Backend", Width: 8},
		{Title: "Started", Width: 14},
		{Title: "Length", Width: 8},
		{Title: "Ticks", Width: 7},
		{Title: "End", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)), // Leave room for header, help, and margins
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// loadSessions reads the most recent sessions.
func (m *SessionsModel) loadSessions() {
	m.detail = nil
	if m.store == nil {
		m.sessions = nil
		m.updateTableRows()
		return
	}
	m.sessions, m.loadErr = m.store.Sessions(maxSessions)
	m.updateTableRows()
}

// updateTableRows updates the table with the loaded sessions.
func (m *SessionsModel) updateTableRows() {
	rows := make([]table.Row, len(m.sessions))
	for i, s := range m.sessions {
		length := "running"
		if !s.Running() {
			length = s.Duration().Round(time.Second).String()
		}
		rows[i] = table.Row{
			shortID(s.ID),
			s.Mode,
			s.Backend,
			s.StartedAt.Local().Format("Jan 02 15:04"),
			length,
			fmt.Sprintf("%d", s.Ticks),
			s.EndReason,
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// loadDetail summarizes the selected session.
func (m *SessionsModel) loadDetail() {
	i := m.table.Cursor()
	if m.store == nil || i < 0 || i >= len(m.sessions) {
		return
	}
	d := &sessionDetail{session: m.sessions[i]}
	ticks, err := m.store.Ticks(d.session.ID)
	if err != nil {
		d.err = err
	} else {
		d.summary = report.Summarize(ticks)
		d.stats, d.err = m.store.SensorStats(d.session.ID)
	}
	m.detail = d
}

// Init initializes the browser model.
func (m SessionsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the browser.
func (m SessionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			if m.detail != nil && !m.showDetailPane() {
				m.detail = nil
				return m, nil
			}
			m.goingBack = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Detail):
			m.loadDetail()
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.loadSessions()
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			if m.detail != nil {
				m.loadDetail()
			}
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the browser.
func (m SessionsModel) View() string {
	if m.quitting || m.goingBack {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		MarginBottom(1)
	b.WriteString(titleStyle.Render(centerText("RECORDED SESSIONS", m.width)))
	b.WriteString("\n\n")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	switch {
	case m.detail != nil && m.showDetailPane():
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			boxStyle.Render(m.renderTableContent()),
			"  ",
			boxStyle.Width(detailWidth).Render(m.renderDetail()),
		))
	case m.detail != nil:
		b.WriteString(boxStyle.Render(m.renderDetail()))
	default:
		b.WriteString(boxStyle.Render(m.renderTableContent()))
	}

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderTableContent renders the table or empty message.
func (m SessionsModel) renderTableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)
	if m.loadErr != nil {
		return emptyStyle.Render("Could not load sessions:\n" + m.loadErr.Error())
	}
	if len(m.sessions) == 0 {
		return emptyStyle.Render("No sessions recorded yet.\nRun carlaview with --record to keep telemetry.")
	}
	return m.table.View()
}

// renderDetail renders the summary of the selected session.
func (m SessionsModel) renderDetail() string {
	d := m.detail
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", shortID(d.session.ID))
	if d.session.Vehicle != "" {
		fmt.Fprintf(&b, "Vehicle    %s\n", d.session.Vehicle)
	}
	if d.err != nil {
		fmt.Fprintf(&b, "\nerror: %v\n", d.err)
		return b.String()
	}
	s := d.summary
	fmt.Fprintf(&b, "Ticks      %d\n", s.Ticks)
	fmt.Fprintf(&b, "Speed      %.1f avg / %.1f max km/h\n", s.MeanSpeedKPH, s.MaxSpeedKPH)
	fmt.Fprintf(&b, "Steer      %.3f mean |x|, %.3f sd\n", s.MeanAbsSteer, s.SteerStdDev)
	fmt.Fprintf(&b, "Braking    %.0f%% of ticks\n", s.BrakeFraction*100)
	if len(d.stats) > 0 {
		b.WriteString("\nSensor     ms/measurement\n")
		for _, st := range d.stats {
			fmt.Fprintf(&b, "%-18s %.2f ± %.2f\n", st.Kind, st.MeanMS, st.StdDevMS)
		}
	}
	return b.String()
}

// IsGoingBack returns true if user wants to go back.
func (m SessionsModel) IsGoingBack() bool {
	return m.goingBack
}

// IsQuitting returns true if user wants to quit entirely.
func (m SessionsModel) IsQuitting() bool {
	return m.quitting
}

// RunSessions runs the session browser.
func RunSessions(store *storage.Store, width, height int) error {
	p := tea.NewProgram(
		NewSessionsModel(store, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
