package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/agile-dashboard-tui/internal/config"
	"github.com/j-veylop/agile-dashboard-tui/internal/logger"
	"github.com/j-veylop/agile-dashboard-tui/internal/models"
	"github.com/j-veylop/agile-dashboard-tui/internal/services"
)

type (
	// tickMsg drives the periodic refresh-if-needed cycle.
	tickMsg time.Time

	// refreshDoneMsg reports the outcome of a refresh command. A nil
	// error does not necessarily mean new data: a covered refresh is a
	// no-op and emits no update event.
	refreshDoneMsg struct {
		err error
	}
)

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	manager *services.Manager
	cfg     *config.Config

	events  chan services.ServiceEvent
	waitCmd tea.Cmd

	snapshot   []models.RateRecord
	fetching   bool
	fetchedOK  bool
	err        error
	showPounds bool

	spinner spinner.Model
	width   int
	height  int
}

// NewModel creates the root dashboard model.
func NewModel(manager *services.Manager, cfg *config.Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Primary)

	events, waitCmd := manager.Subscribe()

	return Model{
		manager:    manager,
		cfg:        cfg,
		events:     events,
		waitCmd:    waitCmd,
		snapshot:   manager.Snapshot(),
		showPounds: manager.Settings().ShowPounds(),
		spinner:    sp,
	}
}

// Init starts the spinner, the event subscription, the periodic tick
// and an initial refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitCmd,
		m.refreshCmd(false),
		m.tickCmd(),
	)
}

// tickCmd schedules the next refresh-if-needed check.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd runs one refresh cycle off the UI loop. Coverage checking
// happens inside the rates service, so an unnecessary tick costs
// nothing.
func (m Model) refreshCmd(force bool) tea.Cmd {
	manager := m.manager
	return func() tea.Msg {
		err := manager.Refresh(context.Background(), force)
		return refreshDoneMsg{err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(false), m.tickCmd())

	case refreshDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.fetching = false
		}
		return m, nil

	case services.ServiceEvent:
		return m.handleServiceEvent(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		return m, m.refreshCmd(true)

	case "p":
		pounds := !m.showPounds
		if err := m.manager.Settings().SetShowPounds(pounds); err != nil {
			logger.Error("failed to save display preference", "error", err)
			return m, nil
		}
		m.showPounds = pounds
		return m, nil
	}

	return m, nil
}

func (m Model) handleServiceEvent(event services.ServiceEvent) (tea.Model, tea.Cmd) {
	switch event := event.(type) {
	case services.RefreshingEvent:
		m.fetching = true
		m.err = nil

	case services.RatesUpdatedEvent:
		m.snapshot = event.Snapshot
		m.fetching = false
		m.fetchedOK = true
		m.err = nil

	case services.SettingsChangedEvent:
		m.showPounds = event.Settings.ShowPounds

	case services.ErrorEvent:
		m.fetching = false
		m.err = event.Error
	}

	// Keep listening for the next event.
	return m, services.WaitForEvent(m.events)
}
