package hr

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/lowaak/pulsefit/internal/events"
	"github.com/lowaak/pulsefit/internal/goutil"
)

// SimulatedSource emits a repeating five minute effort curve at 1 Hz, with a
// light noise overlay. Useful without a monitor strapped on.
type SimulatedSource struct {
	heartRate  *events.Stream[int]
	connection *events.Stream[ConnectionState]
	logger     *log.Logger

	connectDelay time.Duration
	tickInterval time.Duration
	rng          *rand.Rand

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ Source = (*SimulatedSource)(nil)

func NewSimulatedSource(logger *log.Logger) *SimulatedSource {
	if logger == nil {
		panic("SimulatedSource: logger cannot be nil")
	}
	return &SimulatedSource{
		heartRate:    events.NewStream(0),
		connection:   events.NewStream(StateDisconnected),
		logger:       logger,
		connectDelay: 500 * time.Millisecond,
		tickInterval: time.Second,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimulatedSource) HeartRate() *events.Stream[int] {
	return s.heartRate
}

func (s *SimulatedSource) Connection() *events.Stream[ConnectionState] {
	return s.connection
}

// Connect starts the emitter after a short connect delay. The address is
// ignored.
func (s *SimulatedSource) Connect(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.connection.Set(StateConnecting)

	goutil.SafeGo(s.logger, func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.connectDelay):
		}
		s.connection.Set(StateConnected)
		s.logger.Println("Simulated monitor connected")

		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		tick := 0
		for {
			bpm := realisticHR(tick) + s.rng.Intn(5) - 2
			if bpm < 55 {
				bpm = 55
			}
			if bpm > 195 {
				bpm = 195
			}
			s.heartRate.Set(bpm)
			tick++

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// Disconnect stops the emitter and clears the current reading.
func (s *SimulatedSource) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.connection.Set(StateDisconnected)
	s.heartRate.Set(0)
	s.logger.Println("Simulated monitor disconnected")
}

// realisticHR walks a rest, warmup, active, push, peak, cooldown cycle over
// 300 ticks.
func realisticHR(tick int) int {
	pos := tick % 300
	switch {
	case pos < 30:
		return 70
	case pos < 60:
		progress := float64(pos-30) / 30.0
		return int(70 + 40*progress)
	case pos < 120:
		progress := float64(pos-60) / 60.0
		variation := math.Sin(float64(pos)*0.3) * 5
		return int(110 + 30*progress + variation)
	case pos < 180:
		progress := float64(pos-120) / 60.0
		variation := math.Sin(float64(pos)*0.2) * 4
		return int(140 + 25*progress + variation)
	case pos < 210:
		progress := float64(pos-180) / 30.0
		return int(165 + 15*progress)
	default:
		progress := float64(pos-210) / 90.0
		return int(180 - 110*progress)
	}
}
