package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/pulsefit/internal/events"
	"github.com/lowaak/pulsefit/internal/hr"
	"github.com/lowaak/pulsefit/internal/store"
	"github.com/lowaak/pulsefit/internal/zone"
)

// ErrSessionActive is returned when a session is started while one runs.
var ErrSessionActive = errors.New("a session is already active")

// ErrNoSession is returned when there is no session to end.
var ErrNoSession = errors.New("no active session")

// Store is the persistence surface the session manager needs. *store.Store
// satisfies it.
type Store interface {
	SettlementStore
	QuestStore
	SampleAppender
	CreateWorkout(start time.Time, justFiveMin bool) (int64, error)
}

// Manager owns the session lifecycle: it creates the workout row, connects
// the heart-rate source, runs the clock, and hands the final state to the
// settler when the user ends the session. One session at a time.
type Manager struct {
	store         Store
	source        hr.Source
	settler       *Settler
	loc           *time.Location
	deviceAddress string
	logger        *log.Logger

	mu    sync.Mutex
	clock *SessionClock
}

func NewManager(s Store, source hr.Source, settler *Settler, loc *time.Location, deviceAddress string, logger *log.Logger) *Manager {
	if s == nil {
		panic("Manager: store cannot be nil")
	}
	if source == nil {
		panic("Manager: source cannot be nil")
	}
	if settler == nil {
		panic("Manager: settler cannot be nil")
	}
	if logger == nil {
		panic("Manager: logger cannot be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Manager{
		store:         s,
		source:        source,
		settler:       settler,
		loc:           loc,
		deviceAddress: deviceAddress,
		logger:        logger,
	}
}

// Source exposes the heart-rate source for connection state display.
func (m *Manager) Source() hr.Source {
	return m.source
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock != nil
}

// State returns the live state stream of the running session, or nil when
// idle.
func (m *Manager) State() *events.Stream[SessionState] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock == nil {
		return nil
	}
	return m.clock.State()
}

// Quests returns today's quests, generating them if needed.
func (m *Manager) Quests() ([]*store.DailyQuest, error) {
	return EnsureDailyQuests(m.store, m.loc, time.Now(), m.logger)
}

// StartSession creates the workout record, connects the source and starts
// the clock.
func (m *Manager) StartSession(justFiveMin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock != nil {
		return ErrSessionActive
	}

	profile, err := m.store.Profile()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	// Make sure today's quests exist before settlement looks for them
	if _, err := EnsureDailyQuests(m.store, m.loc, time.Now(), m.logger); err != nil {
		return err
	}

	start := time.Now()
	workoutID, err := m.store.CreateWorkout(start, justFiveMin)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	clockProfile := ClockProfile{
		MaxHeartRate: profile.MaxHeartRate,
		Thresholds:   profile.Thresholds,
		Age:          profile.Age,
		WeightKg:     profile.WeightKg,
		Male:         profile.Male(),
	}
	if clockProfile.MaxHeartRate <= 0 {
		clockProfile.MaxHeartRate = store.DefaultProfile().MaxHeartRate
		clockProfile.Thresholds = zone.DefaultThresholds()
	}

	m.clock = NewSessionClock(workoutID, start, justFiveMin, m.source, m.store, clockProfile, m.logger)
	m.source.Connect(m.deviceAddress)
	m.clock.Start()
	m.logger.Printf("Session %d started", workoutID)
	return nil
}

// EndSession stops the clock, disconnects the source and runs settlement.
func (m *Manager) EndSession() (*SettlementResult, error) {
	m.mu.Lock()
	clock := m.clock
	m.clock = nil
	m.mu.Unlock()

	if clock == nil {
		return nil, ErrNoSession
	}

	final := clock.Stop()
	return m.settler.Settle(final.WorkoutID, final, time.Now())
}

// Shutdown aborts any running session without settling it. The workout row
// stays open and is ignored by history and streaks.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	clock := m.clock
	m.clock = nil
	m.mu.Unlock()

	if clock != nil {
		final := clock.Stop()
		m.logger.Printf("Session %d abandoned at %d s", final.WorkoutID, final.ElapsedSeconds)
	}
}
