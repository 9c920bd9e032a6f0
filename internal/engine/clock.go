// Package engine drives a workout session: the 1 Hz clock that classifies
// each heart-rate reading and accrues burn points, the end-of-session
// settlement pipeline, and daily quest generation.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/lowaak/pulsefit/internal/events"
	"github.com/lowaak/pulsefit/internal/goutil"
	"github.com/lowaak/pulsefit/internal/hr"
	"github.com/lowaak/pulsefit/internal/progression"
	"github.com/lowaak/pulsefit/internal/store"
	"github.com/lowaak/pulsefit/internal/zone"
)

// recentWindow is how many readings the display window retains.
const recentWindow = 60

// sampleEvery is the sparse persistence period in ticks.
const sampleEvery = 5

// SessionState is the live view of a running session, published after every
// tick. Values only the clock goroutine mutates; consumers get copies.
type SessionState struct {
	WorkoutID        int64
	StartTime        time.Time
	ElapsedSeconds   int
	CurrentHeartRate int
	CurrentZone      zone.Zone
	ZoneSeconds      zone.Times
	PointAccumulator float64
	BurnPoints       int
	RecentReadings   []int // oldest first, at most 60 entries
	AverageHeartRate int   // running mean over valid ticks
	PreviewCalories  int   // best-effort mid-session estimate, 0 if unknown
	JustFiveMin      bool
}

// ClockProfile is the profile snapshot the clock needs, read once at session
// start.
type ClockProfile struct {
	MaxHeartRate int
	Thresholds   zone.Thresholds
	Age          int
	WeightKg     float64
	Male         bool
}

// SampleAppender is the slice of the store the clock writes through.
type SampleAppender interface {
	AppendSample(sample store.HeartRateSample) error
}

// SessionClock ticks once per second, pulling the latest reading from the
// source, classifying it and accruing fractional burn points. Every fifth
// tick the current reading is persisted asynchronously as a sparse sample.
// Stop cancels the loop, disconnects the source exactly once and returns the
// final state for settlement.
type SessionClock struct {
	source  hr.Source
	samples SampleAppender
	profile ClockProfile
	logger  *log.Logger

	stateStream  *events.Stream[SessionState]
	tickInterval time.Duration

	// owned by the clock goroutine
	state    SessionState
	readings []int
	hrSum    int
	hrCount  int

	stopChan  chan struct{}
	finalChan chan SessionState
	stopOnce  sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup

	mu    sync.Mutex
	final *SessionState
}

func NewSessionClock(
	workoutID int64,
	startTime time.Time,
	justFiveMin bool,
	source hr.Source,
	samples SampleAppender,
	profile ClockProfile,
	logger *log.Logger,
) *SessionClock {
	if source == nil {
		panic("SessionClock: source cannot be nil")
	}
	if samples == nil {
		panic("SessionClock: samples cannot be nil")
	}
	if logger == nil {
		panic("SessionClock: logger cannot be nil")
	}

	initial := SessionState{
		WorkoutID:   workoutID,
		StartTime:   startTime,
		CurrentZone: zone.Rest,
		JustFiveMin: justFiveMin,
	}
	return &SessionClock{
		source:       source,
		samples:      samples,
		profile:      profile,
		logger:       logger,
		stateStream:  events.NewStream(initial),
		tickInterval: time.Second,
		state:        initial,
		readings:     make([]int, 0, recentWindow),
		stopChan:     make(chan struct{}),
		finalChan:    make(chan SessionState, 1),
	}
}

// State returns the live session state stream.
func (c *SessionClock) State() *events.Stream[SessionState] {
	return c.stateStream
}

// Start begins ticking. Repeated calls are no-ops.
func (c *SessionClock) Start() {
	c.startOnce.Do(func() {
		c.logger.Printf("Session %d: clock started", c.state.WorkoutID)
		c.wg.Add(1)
		goutil.SafeGo(c.logger, func() {
			defer c.wg.Done()
			c.run()
		})
	})
}

// Stop cancels the tick loop and disconnects the heart-rate source, both
// exactly once, and returns the final state snapshot. Safe to call more than
// once; later calls return the same snapshot.
func (c *SessionClock) Stop() SessionState {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
		final := <-c.finalChan
		c.source.Disconnect()

		c.mu.Lock()
		c.final = &final
		c.mu.Unlock()
		c.logger.Printf("Session %d: clock stopped at %d s, %d burn points",
			final.WorkoutID, final.ElapsedSeconds, final.BurnPoints)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.final
}

func (c *SessionClock) run() {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			c.finalChan <- c.snapshot()
			return
		case <-ticker.C:
			c.tick()
			c.stateStream.Set(c.snapshot())
		}
	}
}

// tick advances the session by one second. A missing or non-positive
// reading still advances elapsed time, attributed to the Rest zone so zone
// times always sum to the elapsed seconds; the displayed zone is left as it
// was.
func (c *SessionClock) tick() {
	c.state.ElapsedSeconds++
	bpm := c.source.HeartRate().Latest()

	if bpm <= 0 {
		c.state.CurrentHeartRate = 0
		c.state.ZoneSeconds.Add(zone.Rest, 1)
		return
	}

	z := zone.Classify(bpm, c.profile.MaxHeartRate, c.profile.Thresholds)
	c.state.CurrentHeartRate = bpm
	c.state.CurrentZone = z
	c.state.ZoneSeconds.Add(z, 1)
	c.state.PointAccumulator += float64(z.PointsPerMinute()) / 60.0
	c.state.BurnPoints = int(c.state.PointAccumulator)

	if len(c.readings) == recentWindow {
		c.readings = c.readings[1:]
	}
	c.readings = append(c.readings, bpm)

	c.hrSum += bpm
	c.hrCount++
	c.state.AverageHeartRate = (c.hrSum + c.hrCount/2) / c.hrCount

	if kcal, ok := progression.EstimateCalories(
		c.state.AverageHeartRate, c.state.ElapsedSeconds/60,
		c.profile.Age, c.profile.WeightKg, c.profile.Male,
	); ok {
		c.state.PreviewCalories = kcal
	}

	if c.state.ElapsedSeconds%sampleEvery == 0 {
		c.persistSample(bpm, z)
	}
}

// persistSample writes the sparse sample without blocking the tick loop.
func (c *SessionClock) persistSample(bpm int, z zone.Zone) {
	sample := store.HeartRateSample{
		WorkoutID:  c.state.WorkoutID,
		RecordedAt: time.Now(),
		HeartRate:  bpm,
		Zone:       z,
	}
	goutil.SafeGo(c.logger, func() {
		if err := c.samples.AppendSample(sample); err != nil {
			c.logger.Printf("Session %d: failed to persist sample: %v", sample.WorkoutID, err)
		}
	})
}

func (c *SessionClock) snapshot() SessionState {
	s := c.state
	s.RecentReadings = append([]int(nil), c.readings...)
	return s
}
