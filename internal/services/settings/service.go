// Package settings provides user preference management with file
// watching and persistence.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/agile-dashboard-tui/internal/logger"
	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// Event represents a settings service event.
type Event struct {
	Type     EventType
	Error    error
	Settings models.Settings
}

// EventType defines the type of settings event.
type EventType int

const (
	EventSettingsLoaded EventType = iota
	EventSettingsChanged
	EventError
)

// Service manages settings with file watching and change notifications.
// External edits to the settings file (for example another tool writing
// a new postcode) are picked up and rebroadcast.
type Service struct {
	mu            sync.RWMutex
	settings      models.Settings
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
}

// New creates a new settings service and starts file watching. A
// missing file is created with defaults.
func New(filePath string) (*Service, error) {
	s := &Service{
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := s.load(); err != nil {
		if os.IsNotExist(err) {
			if err := s.save(); err != nil {
				return nil, fmt.Errorf("failed to create settings file: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventSettingsLoaded, Settings: s.Get()})

	return s, nil
}

// Events returns the event channel for subscribing to settings changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Get returns a copy of the current settings.
func (s *Service) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Postcode returns the stored postcode (implements rates.SettingsProvider).
func (s *Service) Postcode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Postcode
}

// ShowPounds reports whether prices display in pounds rather than pence.
func (s *Service) ShowPounds() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.ShowPounds
}

// SetPostcode stores a new postcode and persists it.
func (s *Service) SetPostcode(postcode string) error {
	s.mu.Lock()
	s.settings.Postcode = postcode
	err := s.saveLocked()
	settings := s.settings
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.sendEvent(Event{Type: EventSettingsChanged, Settings: settings})
	return nil
}

// SetShowPounds stores the price display preference and persists it.
func (s *Service) SetShowPounds(pounds bool) error {
	s.mu.Lock()
	s.settings.ShowPounds = pounds
	err := s.saveLocked()
	settings := s.settings
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.sendEvent(Event{Type: EventSettingsChanged, Settings: settings})
	return nil
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var settings models.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse settings file: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return nil
}

func (s *Service) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Service) saveLocked() error {
	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0o600)
}

func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory (to catch file creation/deletion)
	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

func (s *Service) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// Debounce rapid changes
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, func() {
					s.handleFileChange()
				})
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleFileChange() {
	old := s.Get()

	if err := s.load(); err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	current := s.Get()
	if current == old {
		return
	}

	logger.Info("settings file changed", "postcode", current.Postcode)
	s.sendEvent(Event{Type: EventSettingsChanged, Settings: current})
}

func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the watcher and releases resources.
func (s *Service) Close() error {
	close(s.stopChan)

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
