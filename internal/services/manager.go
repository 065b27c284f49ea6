// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/agile-dashboard-tui/internal/analytics"
	"github.com/j-veylop/agile-dashboard-tui/internal/config"
	"github.com/j-veylop/agile-dashboard-tui/internal/db"
	"github.com/j-veylop/agile-dashboard-tui/internal/logger"
	"github.com/j-veylop/agile-dashboard-tui/internal/models"
	"github.com/j-veylop/agile-dashboard-tui/internal/services/rates"
	"github.com/j-veylop/agile-dashboard-tui/internal/services/settings"
	"github.com/j-veylop/agile-dashboard-tui/internal/services/tariff"
)

type (
	// RatesUpdatedEvent is emitted when the rate snapshot is replaced.
	RatesUpdatedEvent struct {
		Snapshot []models.RateRecord
	}

	// RefreshingEvent is emitted when a fetch cycle starts.
	RefreshingEvent struct{}

	// SettingsChangedEvent is emitted when user settings change.
	SettingsChangedEvent struct {
		Settings models.Settings
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (RatesUpdatedEvent) isServiceEvent()    {}
func (RefreshingEvent) isServiceEvent()      {}
func (SettingsChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()           {}

// Manager is the composition root: it owns the store, the settings
// service, the tariff client and the rates service, and routes their
// events to subscribers.
type Manager struct {
	mu            sync.RWMutex
	database      *db.DB
	settings      *settings.Service
	rates         *rates.Service
	eventChan     chan ServiceEvent
	stopChan      chan struct{}
	subscribers   []chan<- ServiceEvent
	lastNegatives time.Time
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.settings, err = settings.New(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	client := tariff.New(tariff.Config{
		BaseURL:     cfg.APIBaseURL,
		ProductCode: cfg.ProductCode,
		Timeout:     cfg.HTTPTimeout,
	})

	m.rates, err = rates.New(m.database, client, m.settings, rates.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rates service: %w", err)
	}

	go m.routeEvents()

	return m, nil
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.settings.Events():
			m.handleSettingsEvent(event)

		case event := <-m.rates.Events():
			m.handleRatesEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleSettingsEvent(event settings.Event) {
	switch event.Type {
	case settings.EventSettingsChanged:
		m.broadcast(SettingsChangedEvent{Settings: event.Settings})

		// A new postcode can mean a new region, so refetch regardless of
		// coverage.
		go func() {
			if err := m.rates.Refresh(context.Background(), true); err != nil {
				logger.Error("refresh after settings change failed", "error", err)
			}
		}()

	case settings.EventError:
		m.broadcast(ErrorEvent{Service: "settings", Error: event.Error})
	}
}

func (m *Manager) handleRatesEvent(event rates.Event) {
	switch event.Type {
	case rates.EventRefreshing:
		m.broadcast(RefreshingEvent{})

	case rates.EventUpdated:
		snapshot := m.rates.Snapshot()
		m.broadcast(RatesUpdatedEvent{Snapshot: snapshot})
		m.checkNegativePrices(snapshot)

	case rates.EventError:
		m.broadcast(ErrorEvent{Service: "rates", Error: event.Error})
	}
}

// checkNegativePrices sends a desktop notification the first time an
// upcoming negative-priced slot appears in the series.
func (m *Manager) checkNegativePrices(snapshot []models.RateRecord) {
	now := time.Now()

	var latest time.Time
	count := 0
	for _, r := range snapshot {
		if r.ValidTo.After(now) && r.IsNegative() {
			count++
			if r.ValidFrom.After(latest) {
				latest = r.ValidFrom
			}
		}
	}
	if count == 0 {
		return
	}

	m.mu.Lock()
	alreadyNotified := !latest.After(m.lastNegatives)
	if !alreadyNotified {
		m.lastNegatives = latest
	}
	m.mu.Unlock()

	if alreadyNotified {
		return
	}

	title := "Negative electricity prices"
	body := fmt.Sprintf("%d upcoming half-hour slots pay you to use power.", count)
	_ = beeep.Notify(title, body, "")
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	// Send to subscribers
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Snapshot returns the current in-memory rate series.
func (m *Manager) Snapshot() []models.RateRecord {
	return m.rates.Snapshot()
}

// Refresh runs a refresh cycle; force bypasses the coverage check.
func (m *Manager) Refresh(ctx context.Context, force bool) error {
	return m.rates.Refresh(ctx, force)
}

// ResetCache wipes the cached rate series.
func (m *Manager) ResetCache() error {
	return m.rates.Reset()
}

// Settings returns the settings service.
func (m *Manager) Settings() *settings.Service {
	return m.settings
}

// Rates returns the rates service.
func (m *Manager) Rates() *rates.Service {
	return m.rates
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// SameDay returns the snapshot records sharing a local calendar day
// with t, using the publication zone.
func (m *Manager) SameDay(t time.Time) []models.RateRecord {
	return analytics.SameDay(m.rates.Snapshot(), t, m.rates.Location())
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	close(m.stopChan)

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error

	if err := m.settings.Close(); err != nil {
		errs = append(errs, err)
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
