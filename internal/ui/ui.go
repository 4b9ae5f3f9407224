package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytdash/internal/dashboard"
)

// Source is what the model observes; [dashboard.Tree] implements it.
type Source interface {
	Snapshot(shell dashboard.Shell, tab string) dashboard.Snapshot
	Changes() (<-chan struct{}, func())
}

// Model represents the TUI application state.
type Model struct {
	source   Source
	shell    dashboard.Shell
	snapshot dashboard.Snapshot
	tab      int
	changes  <-chan struct{}
	stop     func()
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
}

// NewModel creates a new TUI model following source.
func NewModel(source Source, shell dashboard.Shell) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	m := &Model{
		source:  source,
		shell:   shell,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.changes, m.stop = source.Changes()
	m.snapshot = source.Snapshot(shell, m.currentTab())
	return m
}

// Close stops following the source.
func (m *Model) Close() {
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
}

// Snapshot returns the state last rendered.
func (m *Model) Snapshot() dashboard.Snapshot {
	return m.snapshot
}

// Init starts the spinner and waits for the first change.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgStateChanged:
			m.refresh()
			return m, m.waitForChange()
		case MsgStreamClosed:
			return m, nil
		}

	case spinner.TickMsg:
		if m.snapshot.View.Kind != dashboard.ViewLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.refresh()
		if m.snapshot.View.Kind == dashboard.ViewLoading {
			return m, m.spinner.Tick
		}
	case key.Matches(msg, m.keys.next):
		m.moveTab(1)
	case key.Matches(msg, m.keys.prev):
		m.moveTab(-1)
	}
	return m, nil
}

func (m *Model) moveTab(delta int) {
	if m.snapshot.View.Kind != dashboard.ViewTab || len(m.shell.Tabs) == 0 {
		return
	}
	n := len(m.shell.Tabs)
	m.tab = ((m.tab+delta)%n + n) % n
	m.refresh()
}

func (m *Model) currentTab() string {
	if m.tab < len(m.shell.Tabs) {
		return m.shell.Tabs[m.tab]
	}
	return ""
}

func (m *Model) refresh() {
	m.snapshot = m.source.Snapshot(m.shell, m.currentTab())
}

func (m *Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return streamClosedMsg()
		}
		return stateChangedMsg()
	}
}

// View renders the UI based on the current dashboard view.
func (m *Model) View() string {
	var body string
	switch m.snapshot.View.Kind {
	case dashboard.ViewLoading:
		body = m.renderLoading()
	case dashboard.ViewRedirect:
		body = m.renderSignedOut()
	case dashboard.ViewConnectChannel:
		body = m.renderConnect()
	case dashboard.ViewTab:
		body = m.renderTab()
	}

	helpKeys := []key.Binding{m.keys.refresh, m.keys.quit}
	if m.snapshot.View.Kind == dashboard.ViewTab {
		helpKeys = []key.Binding{m.keys.prev, m.keys.next, m.keys.refresh, m.keys.quit}
	}
	return fmt.Sprintf("%s\n\n%s", body, m.help.ShortHelpView(helpKeys))
}

func (m *Model) header() string {
	s := m.snapshot.Session.Session
	if s == nil {
		return styles.title.Render("ytdash")
	}
	expires := time.Until(s.ExpiresAt).Round(time.Minute)
	return styles.title.Render("ytdash") + "\n" +
		styles.help.Render(fmt.Sprintf("%s • session %s • expires in %s", s.Email, s.ID, expires))
}

func (m *Model) renderLoading() string {
	return fmt.Sprintf("%s\n%s Loading dashboard...", m.header(), m.spinner.View())
}

func (m *Model) renderSignedOut() string {
	return fmt.Sprintf("%s\n%s", m.header(),
		styles.err.Render(fmt.Sprintf("Signed out. The browser would be sent to %s.", m.snapshot.View.RedirectTo)))
}

func (m *Model) renderConnect() string {
	return fmt.Sprintf("%s\n%s\n%s", m.header(),
		styles.warn.Render("No YouTube channel connected."),
		styles.help.Render("The dashboard shows the connect-channel prompt until a channel is linked."))
}

func (m *Model) renderTab() string {
	tabs := make([]string, 0, len(m.shell.Tabs))
	for _, name := range m.shell.Tabs {
		if name == m.snapshot.View.Tab {
			tabs = append(tabs, styles.active.Render(name))
		} else {
			tabs = append(tabs, styles.tab.Render(name))
		}
	}

	var channel string
	if c := m.snapshot.Channel.Channel; c != nil {
		channel = styles.ok.Render("✓ channel " + c.ChannelID)
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", m.header(), lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		channel, strings.ToUpper(m.snapshot.View.Tab))
}
