package hr

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/pulsefit/internal/bt"
	"github.com/lowaak/pulsefit/internal/events"
	"github.com/lowaak/pulsefit/internal/goutil"
)

// DeviceLink is the slice of the Bluetooth manager the BLE source needs.
type DeviceLink interface {
	StartScan(serviceUuidFilter []string)
	StopScan() error
	DeviceByAddress(address string) bt.Device
	Connect(address string) error
	Disconnect(address string) error
	ListenToConnectionEvents(ch chan<- bt.ConnectionEvent) func()
}

var _ DeviceLink = (bt.Manager)(nil)

const (
	reconnectAttempts = 3
	reconnectBackoff  = 2 * time.Second
	scanWindow        = 30 * time.Second
)

// BLESource reads a live heart-rate monitor. Connect scans for the device,
// links up and subscribes to measurement notifications. Unintentional drops
// are retried a few times with backoff; Disconnect cancels any retry.
type BLESource struct {
	link       DeviceLink
	heartRate  *events.Stream[int]
	connection *events.Stream[ConnectionState]
	logger     *log.Logger

	// overridable in tests
	backoff    time.Duration
	scanWindow time.Duration

	mu          sync.Mutex
	address     string
	intentional bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

var _ Source = (*BLESource)(nil)

func NewBLESource(link DeviceLink, logger *log.Logger) *BLESource {
	if logger == nil {
		panic("BLESource: logger cannot be nil")
	}
	return &BLESource{
		link:       link,
		heartRate:  events.NewStream(0),
		connection: events.NewStream(StateDisconnected),
		logger:     logger,
		backoff:    reconnectBackoff,
		scanWindow: scanWindow,
	}
}

func (s *BLESource) HeartRate() *events.Stream[int] {
	return s.heartRate
}

func (s *BLESource) Connection() *events.Stream[ConnectionState] {
	return s.connection
}

// Connect starts the connection loop for the monitor at address. Repeated
// calls while a loop is running are ignored.
func (s *BLESource) Connect(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.address = address
	s.intentional = false

	s.wg.Add(1)
	goutil.SafeGo(s.logger, func() {
		defer s.wg.Done()
		s.run(ctx, address)
	})
}

// Disconnect tears the link down and suppresses reconnection.
func (s *BLESource) Disconnect() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.intentional = true
	s.cancel()
	s.cancel = nil
	address := s.address
	s.mu.Unlock()

	s.wg.Wait()

	if err := s.link.Disconnect(address); err != nil {
		s.logger.Printf("Disconnect from %s: %v", address, err)
	}
	s.connection.Set(StateDisconnected)
	s.heartRate.Set(0)
}

// run owns the source's connection lifecycle until ctx is cancelled.
func (s *BLESource) run(ctx context.Context, address string) {
	eventCh := make(chan bt.ConnectionEvent, 16)
	deregister := s.link.ListenToConnectionEvents(eventCh)
	defer deregister()

	if err := s.establish(ctx, address); err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("Could not connect to %s: %v", address, err)
			s.connection.Set(StateDisconnected)
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-eventCh:
			if ev.Address != address {
				continue
			}
			if ev.Connected {
				continue
			}

			s.logger.Printf("Lost connection to %s", address)
			s.heartRate.Set(0)
			if !s.reconnect(ctx, address) {
				if ctx.Err() == nil {
					s.connection.Set(StateDisconnected)
				}
				return
			}
		}
	}
}

// establish scans for the device, connects and subscribes to heart-rate
// notifications.
func (s *BLESource) establish(ctx context.Context, address string) error {
	s.connection.Set(StateScanning)
	s.link.StartScan([]string{ServiceUUIDHeartRate})

	device, err := s.waitForDevice(ctx, address)
	stopErr := s.link.StopScan()
	if stopErr != nil {
		s.logger.Printf("Stopping scan: %v", stopErr)
	}
	if err != nil {
		return err
	}

	s.connection.Set(StateConnecting)
	if err := s.link.Connect(address); err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	if err := device.WaitForConnection(10 * time.Second); err != nil {
		return err
	}

	if err := s.subscribe(device); err != nil {
		return err
	}
	s.connection.Set(StateConnected)
	s.logger.Printf("Heart-rate monitor %s connected", address)
	return nil
}

func (s *BLESource) waitForDevice(ctx context.Context, address string) (bt.Device, error) {
	if device := s.link.DeviceByAddress(address); device != nil {
		return device, nil
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(s.scanWindow)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("device %s not found within %v", address, s.scanWindow)
		case <-ticker.C:
			if device := s.link.DeviceByAddress(address); device != nil {
				return device, nil
			}
		}
	}
}

func (s *BLESource) subscribe(device bt.Device) error {
	err := device.EnableNotifications(ServiceUUIDHeartRate, CharUUIDHeartRateMeasurement, func(buf []byte) {
		bpm, err := ParseMeasurement(buf)
		if err != nil {
			s.logger.Printf("Bad heart-rate measurement: %v", err)
			return
		}
		s.heartRate.Set(bpm)
	})
	if err != nil {
		return fmt.Errorf("enabling heart-rate notifications: %w", err)
	}

	if buf, err := device.ReadCharacteristic(ServiceUUIDBattery, CharUUIDBatteryLevel); err == nil && len(buf) > 0 {
		s.logger.Printf("Monitor battery level: %d%%", buf[0])
	}
	return nil
}

// reconnect retries the link after an unintentional drop. Returns true once
// reconnected, false when attempts are exhausted or the context is gone.
func (s *BLESource) reconnect(ctx context.Context, address string) bool {
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.backoff):
		}

		s.logger.Printf("Reconnect attempt %d/%d to %s", attempt, reconnectAttempts, address)
		s.connection.Set(StateConnecting)

		if err := s.establish(ctx, address); err != nil {
			s.logger.Printf("Reconnect attempt %d failed: %v", attempt, err)
			continue
		}
		return true
	}
	s.logger.Printf("Giving up on %s after %d attempts", address, reconnectAttempts)
	return false
}
