package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ddspy/internal/app"
	"ddspy/internal/bus"
	"ddspy/internal/command"
	"ddspy/internal/config"
	"ddspy/internal/distlog"
	"ddspy/internal/monitor"
)

// Controller defines the subset of app.Console behaviour the TUI needs.
type Controller interface {
	Config() config.Config
	Refresh() error
	Participants() []app.ParticipantRow
	Endpoints(bus.Identity) []app.EndpointRow
	OpenLog(bus.Identity) (*monitor.Session, error)
	OpenState(context.Context, bus.Identity) (*monitor.Session, error)
	LogSession() (*monitor.Session, bool)
	StateSession() (*monitor.Session, bool)
	PollViews() error
	SetVerbosity(context.Context, bus.Identity, distlog.Level) (command.Result, error)
	CloseViews() error
}

type screen int

const (
	screenParticipants screen = iota
	screenEndpoints
	screenDetail
)

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller

	screen    screen
	list      list.Model
	endpoints list.Model
	stream    viewport.Model
	spin      spinner.Model

	target     bus.Identity
	targetName string

	level          distlog.Level
	commandPending bool

	statusMsg string
	err       error

	width  int
	height int

	lastUpdated time.Time
}

// New constructs a TUI model with default styles.
func New(ctrl Controller) *Model {
	participants := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	participants.Title = "Participants"
	participants.SetShowHelp(false)
	participants.SetFilteringEnabled(false)
	participants.DisableQuitKeybindings()

	endpoints := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	endpoints.Title = "Endpoints"
	endpoints.SetShowHelp(false)
	endpoints.SetFilteringEnabled(false)
	endpoints.DisableQuitKeybindings()

	sp := spinner.New()
	sp.Spinner = spinner.Points

	return &Model{
		controller: ctrl,
		list:       participants,
		endpoints:  endpoints,
		stream:     viewport.New(0, 0),
		spin:       sp,
		level:      distlog.Warning,
		statusMsg:  "Waiting for discovery…",
	}
}

// Run spins up the Bubble Tea program with sensible defaults.
func Run(ctrl Controller) error {
	m := New(ctrl)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.controller), m.refreshTick(), m.pollTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 4 {
			m.list.SetSize(msg.Width, msg.Height-4)
			m.endpoints.SetSize(msg.Width, msg.Height-4)
			m.stream.Width = msg.Width - 2
			m.stream.Height = msg.Height - 10
		}

	case refreshTickMsg:
		return m, tea.Batch(refreshCmd(m.controller), m.refreshTick())

	case refreshedMsg:
		m.err = nil
		m.lastUpdated = time.Now()
		rows := m.controller.Participants()
		items := make([]list.Item, 0, len(rows))
		for _, row := range rows {
			items = append(items, participantItem{row})
		}
		m.list.SetItems(items)
		m.statusMsg = fmt.Sprintf("%d participants discovered", len(rows))
		if m.screen == screenEndpoints {
			m.reloadEndpoints()
		}

	case pollTickMsg:
		if m.screen == screenDetail {
			if err := m.controller.PollViews(); err != nil {
				m.err = err
			}
			m.renderStream()
		}
		return m, m.pollTick()

	case sessionsOpenedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.statusMsg = fmt.Sprintf("Monitoring %s (%s)", m.targetName, m.target)
		}
		m.renderStream()

	case commandResultMsg:
		m.commandPending = false
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.statusMsg = fmt.Sprintf("Command failed: %v", msg.err)
		case !msg.result.OK():
			m.statusMsg = fmt.Sprintf("Command rejected (code %d): %s", msg.result.Code, msg.result.Message)
		default:
			m.statusMsg = fmt.Sprintf("Verbosity set to %s", msg.level)
		}
		m.renderStream()

	case spinner.TickMsg:
		if m.commandPending {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenParticipants:
		m.list, cmd = m.list.Update(msg)
	case screenEndpoints:
		m.endpoints, cmd = m.endpoints.Update(msg)
	case screenDetail:
		m.stream, cmd = m.stream.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.controller.CloseViews()
		return tea.Quit, true

	case "r":
		return refreshCmd(m.controller), true

	case "enter":
		switch m.screen {
		case screenParticipants:
			item, ok := m.list.SelectedItem().(participantItem)
			if !ok {
				return nil, true
			}
			m.target = item.row.Identity
			m.targetName = item.row.Name
			m.screen = screenEndpoints
			m.reloadEndpoints()
			return nil, true
		case screenEndpoints:
			m.screen = screenDetail
			m.statusMsg = fmt.Sprintf("Opening sessions for %s…", m.targetName)
			return openSessionsCmd(m.controller, m.target), true
		}

	case "esc", "b":
		switch m.screen {
		case screenDetail:
			if err := m.controller.CloseViews(); err != nil {
				m.err = err
			}
			m.stream.SetContent("")
			m.screen = screenEndpoints
			return nil, true
		case screenEndpoints:
			m.screen = screenParticipants
			return nil, true
		}

	case "+", "=":
		if m.screen == screenDetail {
			m.level = m.level.Next(true)
			return nil, true
		}

	case "-", "_":
		if m.screen == screenDetail {
			m.level = m.level.Next(false)
			return nil, true
		}

	case "s":
		if m.screen == screenDetail && !m.commandPending {
			if m.target.IsZero() {
				m.statusMsg = "Target identity not resolved; command not sent"
				return nil, true
			}
			m.commandPending = true
			m.statusMsg = fmt.Sprintf("Requesting verbosity %s…", m.level)
			return tea.Batch(m.spin.Tick, setVerbosityCmd(m.controller, m.target, m.level)), true
		}
	}
	return nil, false
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	if m.err != nil {
		statusStyle = statusStyle.Foreground(lipgloss.Color("203"))
	}
	b.WriteString(statusStyle.Render(m.statusMsg))
	b.WriteByte('\n')

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	switch m.screen {
	case screenParticipants:
		b.WriteString(m.list.View())
		b.WriteByte('\n')
		b.WriteString(m.helpLine("enter endpoints • r refresh • q quit"))
	case screenEndpoints:
		b.WriteString(m.endpoints.View())
		b.WriteByte('\n')
		b.WriteString(m.helpLine("enter monitor • esc back • q quit"))
	case screenDetail:
		b.WriteString(m.detailView())
	}
	return b.String()
}

func (m *Model) detailView() string {
	var b strings.Builder

	header := fmt.Sprintf("Target %s (%s) — verbosity selector: %s", m.targetName, m.target, m.level)
	if m.commandPending {
		header += " " + m.spin.View()
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(header))
	b.WriteByte('\n')

	if s, ok := m.controller.StateSession(); ok {
		stateStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
		lines := s.Lines()
		state := "No state reported yet."
		if len(lines) > 0 {
			state = lines[len(lines)-1]
		}
		b.WriteString(stateStyle.Render("State: " + state))
		b.WriteByte('\n')
	}

	b.WriteString(m.stream.View())
	b.WriteByte('\n')
	b.WriteString(m.helpLine("+/- adjust level • s send command • esc close view • q quit"))
	return b.String()
}

func (m *Model) helpLine(help string) string {
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last update %s", m.lastUpdated.Format(time.Kitchen))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(help)
}

func (m *Model) reloadEndpoints() {
	rows := m.controller.Endpoints(m.target)
	items := make([]list.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, endpointItem{row})
	}
	m.endpoints.Title = fmt.Sprintf("Endpoints of %s (%s)", m.targetName, m.target)
	m.endpoints.SetItems(items)
}

func (m *Model) renderStream() {
	s, ok := m.controller.LogSession()
	if !ok {
		return
	}
	lines := s.Lines()
	if len(lines) == 0 {
		m.stream.SetContent("Waiting for records…")
		return
	}
	m.stream.SetContent(strings.Join(lines, "\n"))
	m.stream.GotoBottom()
}

func (m *Model) refreshTick() tea.Cmd {
	return tea.Tick(m.controller.Config().RefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *Model) pollTick() tea.Cmd {
	return tea.Tick(m.controller.Config().PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// participantItem adapts app.ParticipantRow to the bubbles list interface.
type participantItem struct {
	row app.ParticipantRow
}

func (p participantItem) Title() string {
	name := p.row.Name
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("[%s] %s", p.row.Identity, name)
}

func (p participantItem) Description() string {
	return fmt.Sprintf("addr=%s | endpoints=%d", p.row.Address, p.row.Endpoints)
}

func (p participantItem) FilterValue() string {
	return fmt.Sprintf("%s %s %s", p.row.Identity, p.row.Name, p.row.Address)
}

// endpointItem adapts app.EndpointRow to the bubbles list interface.
type endpointItem struct {
	row app.EndpointRow
}

func (e endpointItem) Title() string {
	return fmt.Sprintf("%s (%s)", e.row.Topic, e.row.Direction)
}

func (e endpointItem) Description() string {
	return fmt.Sprintf("type=%s | %s", e.row.TypeName, e.row.QoS)
}

func (e endpointItem) FilterValue() string {
	return fmt.Sprintf("%s %s", e.row.Topic, e.row.TypeName)
}

type refreshTickMsg struct{}

type pollTickMsg struct{}

type refreshedMsg struct{}

type sessionsOpenedMsg struct{ err error }

type commandResultMsg struct {
	level  distlog.Level
	result command.Result
	err    error
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func refreshCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.Refresh(); err != nil {
			return errMsg{err}
		}
		return refreshedMsg{}
	}
}

func openSessionsCmd(ctrl Controller, target bus.Identity) tea.Cmd {
	return func() tea.Msg {
		if _, err := ctrl.OpenLog(target); err != nil {
			return sessionsOpenedMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := ctrl.OpenState(ctx, target); err != nil {
			return sessionsOpenedMsg{err: err}
		}
		return sessionsOpenedMsg{}
	}
}

func setVerbosityCmd(ctrl Controller, target bus.Identity, level distlog.Level) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		res, err := ctrl.SetVerbosity(ctx, target, level)
		return commandResultMsg{level: level, result: res, err: err}
	}
}
