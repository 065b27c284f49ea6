// Package rates coordinates refreshing the cached tariff series: it
// decides when a fetch is due, pulls rates from the remote source,
// persists them, and republishes the in-memory snapshot consumers read.
package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/j-veylop/agile-dashboard-tui/internal/logger"
	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// ErrPersistence indicates a store write or read failure during a
// refresh cycle.
var ErrPersistence = errors.New("rates: persistence error")

// Store is the durable keyed persistence the service writes through.
type Store interface {
	UpsertRates(records []models.RateRecord) error
	GetAllRates() ([]models.RateRecord, error)
	DeleteAllRates() error
}

// Source fetches rate data from the remote tariff API. ResolveRegion
// never fails; it degrades to a default region instead, because a wrong
// region still yields plausible prices while a silently empty series
// would not.
type Source interface {
	ResolveRegion(ctx context.Context, postcode string) string
	FetchRates(ctx context.Context, region string) ([]models.RateRecord, error)
}

// SettingsProvider exposes the stored postcode.
type SettingsProvider interface {
	Postcode() string
}

// Event represents a rates service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of rates event.
type EventType int

const (
	// EventRefreshing indicates a fetch cycle has started.
	EventRefreshing EventType = iota
	// EventUpdated indicates the snapshot has been replaced after a
	// successful fetch and commit.
	EventUpdated
	// EventError indicates a refresh cycle failed; the previous snapshot
	// is still in place.
	EventError
)

// Config holds configuration for the rates service.
type Config struct {
	// Clock supplies the current time; nil means time.Now. Injected so
	// the coverage decision is testable.
	Clock func() time.Time

	// Location is the publication-schedule zone; nil loads
	// PublicationZone.
	Location *time.Location
}

// Service owns the refresh state machine and the in-memory snapshot.
// The snapshot is only ever replaced wholesale after a successful store
// commit, so readers never see fetched-but-unpersisted data.
type Service struct {
	store    Store
	source   Source
	settings SettingsProvider
	clock    func() time.Time
	loc      *time.Location

	mu       sync.RWMutex
	snapshot []models.RateRecord

	fetching  atomic.Bool
	eventChan chan Event
}

// New creates a new rates service. The snapshot is primed from the
// store so a restart shows cached prices immediately.
func New(store Store, source Source, settings SettingsProvider, cfg Config) (*Service, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation(PublicationZone)
		if err != nil {
			return nil, fmt.Errorf("failed to load zone %s: %w", PublicationZone, err)
		}
		cfg.Location = loc
	}

	s := &Service{
		store:     store,
		source:    source,
		settings:  settings,
		clock:     cfg.Clock,
		loc:       cfg.Location,
		eventChan: make(chan Event, 100),
	}

	if err := s.reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Snapshot returns a copy of the current in-memory rate series. It
// never blocks on I/O and never fails.
func (s *Service) Snapshot() []models.RateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]models.RateRecord, len(s.snapshot))
	copy(snapshot, s.snapshot)
	return snapshot
}

// Location returns the publication-schedule zone the service uses for
// coverage decisions.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Covered reports whether the current snapshot satisfies the coverage
// rule right now.
func (s *Service) Covered() bool {
	return IsCovered(s.clock(), s.Snapshot(), s.loc)
}

// Refresh runs one refresh cycle. When force is false and the snapshot
// already covers the expected window it returns immediately without any
// I/O. A refresh arriving while another is in flight is a no-op; the
// in-flight cycle satisfies the same need. Any failure aborts the cycle
// and leaves the previous snapshot intact.
func (s *Service) Refresh(ctx context.Context, force bool) error {
	if !s.fetching.CompareAndSwap(false, true) {
		return nil
	}
	defer s.fetching.Store(false)

	if !force && IsCovered(s.clock(), s.Snapshot(), s.loc) {
		return nil
	}

	s.sendEvent(Event{Type: EventRefreshing})

	region := s.source.ResolveRegion(ctx, s.settings.Postcode())

	records, err := s.source.FetchRates(ctx, region)
	if err != nil {
		err = fmt.Errorf("failed to fetch rates for region %s: %w", region, err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return err
	}

	if err := s.store.UpsertRates(records); err != nil {
		err = fmt.Errorf("%w: upserting %d records: %v", ErrPersistence, len(records), err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return err
	}

	if err := s.reload(); err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
		return err
	}

	logger.Info("rates refreshed", "region", region, "records", len(records))
	s.sendEvent(Event{Type: EventUpdated})
	return nil
}

// Reset wipes the cached series and empties the snapshot. Used for
// cache reset; the next refresh repopulates from the network.
func (s *Service) Reset() error {
	if err := s.store.DeleteAllRates(); err != nil {
		return fmt.Errorf("%w: clearing rates: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventUpdated})
	return nil
}

// reload replaces the whole snapshot from the store. Called only after
// a successful commit (or at startup) so snapshot and store never
// diverge for long.
func (s *Service) reload() error {
	records, err := s.store.GetAllRates()
	if err != nil {
		return fmt.Errorf("%w: loading rates: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	s.snapshot = records
	s.mu.Unlock()

	return nil
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
