package bt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/lowaak/pulsefit/internal/events"
	"github.com/lowaak/pulsefit/internal/goutil"
)

// ConnectionEvent reports a peripheral connecting or dropping. Events carry
// the address so listeners tracking a single monitor can ignore the rest.
type ConnectionEvent struct {
	Address   string
	Connected bool
}

// Manager owns the Bluetooth adapter: scanning for heart-rate monitors,
// connection lifecycle and connection-event fan-out.
type Manager interface {
	Enable() error
	StartScan(serviceUuidFilter []string)
	StopScan() error
	IsScanning() bool
	DeviceByAddress(address string) Device
	Connect(address string) error
	Disconnect(address string) error
	ListenToDeviceList(ch chan<- []Device) func()
	ListenToConnectionEvents(ch chan<- ConnectionEvent) func()
	Shutdown()
}

var _ Manager = (*AdapterManager)(nil)

// AdapterManager is the tinygo bluetooth backed Manager.
type AdapterManager struct {
	adapter          *bluetooth.Adapter
	devicesByAddress map[string]*deviceImpl
	mu               sync.RWMutex
	scanning         bool
	scanTimeout      time.Duration

	scanDeviceListStream *events.Stream[[]Device]
	connectionStream     *events.Stream[ConnectionEvent]

	scanContext       context.Context
	scanContextCancel context.CancelFunc
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	logger            *log.Logger
}

func NewAdapterManager(adapter *bluetooth.Adapter, logger *log.Logger, scanTimeout ...time.Duration) *AdapterManager {
	if logger == nil {
		panic("AdapterManager: logger cannot be nil")
	}
	timeout := 10 * time.Second
	if len(scanTimeout) > 0 && scanTimeout[0] > 0 {
		timeout = scanTimeout[0]
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AdapterManager{
		adapter:              adapter,
		devicesByAddress:     make(map[string]*deviceImpl),
		scanTimeout:          timeout,
		scanDeviceListStream: events.NewStream([]Device{}),
		connectionStream:     events.NewStream(ConnectionEvent{}),
		ctx:                  ctx,
		cancel:               cancel,
		logger:               logger,
	}
}

// DeviceByAddress returns the tracked device for an address, or nil if it
// has never been seen.
func (m *AdapterManager) DeviceByAddress(address string) Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	device, ok := m.devicesByAddress[address]
	if !ok {
		return nil
	}
	return device
}

func (m *AdapterManager) getDeviceImpl(address bluetooth.Address) *deviceImpl {
	m.mu.Lock()
	defer m.mu.Unlock()
	addressStr := address.String()
	result, ok := m.devicesByAddress[addressStr]
	if !ok {
		result = newDeviceImpl(m.logger, address, m.scanTimeout)
		m.devicesByAddress[addressStr] = result
	}
	return result
}

// Enable initializes the adapter and installs the connect handler that
// tracks connection state changes and fans them out to listeners.
func (m *AdapterManager) Enable() error {
	m.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		addressStr := device.Address.String()
		d := m.getDeviceImpl(device.Address)

		if connected {
			m.logger.Printf("Device connected: %s", addressStr)
			d.setConnectedDevice(&device)
			d.setState(Connected)
		} else {
			m.logger.Printf("Device disconnected: %s", addressStr)
			d.setConnectedDevice(nil)
			d.setState(Disconnected)
		}

		m.connectionStream.Set(ConnectionEvent{Address: addressStr, Connected: connected})
	})

	return m.adapter.Enable()
}

// StartScan scans for advertising devices, keeping only those whose
// advertisement carries one of the filter service UUIDs. A nil filter keeps
// everything.
func (m *AdapterManager) StartScan(serviceUuidFilter []string) {
	m.logger.Println("Starting scan")
	m.mu.Lock()
	defer m.mu.Unlock()

	filterSet := make(map[string]struct{})
	for _, filter := range serviceUuidFilter {
		filterSet[filter] = struct{}{}
	}

	if m.scanning && m.scanContextCancel != nil {
		m.logger.Printf("A scan is already running, restarting it")
		m.scanContextCancel()
	}

	m.scanning = true
	m.scanContext, m.scanContextCancel = context.WithCancel(m.ctx)
	scanCtx := m.scanContext

	m.wg.Add(1)
	goutil.SafeGo(m.logger, func() {
		m.cleanupStaleDevices(scanCtx)
	})

	m.wg.Add(1)
	goutil.SafeGo(m.logger, func() {
		defer m.wg.Done()
		defer m.logger.Printf("exiting scan handling loop")

		err := m.adapter.Scan(func(adapter *bluetooth.Adapter, device bluetooth.ScanResult) {
			select {
			case <-scanCtx.Done():
				// ignore the result, StopScan on the adapter is still pending
				return
			default:
			}

			if serviceUuidFilter != nil {
				found := false
				for _, uuid := range device.ServiceUUIDs() {
					if _, ok := filterSet[uuid.String()]; ok {
						found = true
						break
					}
				}
				if !found {
					return
				}
			}

			d := m.getDeviceImpl(device.Address)
			first := d.ScanLastSeen().IsZero() || d.ScanLastSeen().Equal(time.Unix(0, 0))
			d.setScanResult(&device)
			d.setScanLastSeen(time.Now())
			if first {
				d.setServiceUUIDs(device.ServiceUUIDs())
				name := device.LocalName()
				if name == "" {
					name = "Unknown"
				}
				m.logger.Printf("Found device: %s (%s) [RSSI: %d]", name, device.Address.String(), device.RSSI)
			}
		})
		if err != nil {
			m.logger.Printf("Scan error: %v", err)
		}
	})

	// Emit current scan results every second
	m.wg.Add(1)
	goutil.SafeGo(m.logger, func() {
		defer m.wg.Done()
		defer m.logger.Printf("exiting scan emit ticker loop")

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-scanCtx.Done():
				return
			case <-ticker.C:
				m.scanDeviceListStream.Set(m.ScanDevices())
			}
		}
	})
}

func (m *AdapterManager) cleanupStaleDevices(ctx context.Context) {
	defer m.wg.Done()
	defer m.logger.Printf("exiting cleanup stale devices loop")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			var removed []string
			for addr, device := range m.devicesByAddress {
				if device.IsConnected() {
					continue
				}
				if now.Sub(device.ScanLastSeen()) > m.scanTimeout {
					delete(m.devicesByAddress, addr)
					removed = append(removed, addr)
				}
			}
			m.mu.Unlock()

			for _, addr := range removed {
				m.logger.Printf("Device timeout: %s (not seen for %v)", addr, m.scanTimeout)
			}
		}
	}
}

func (m *AdapterManager) StopScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.scanning {
		return nil
	}
	m.scanning = false
	if m.scanContextCancel != nil {
		m.scanContextCancel()
		m.scanContextCancel = nil
	}
	return m.adapter.StopScan()
}

func (m *AdapterManager) IsScanning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scanning
}

// Connect initiates a connection. Success or failure is reported
// asynchronously through the connect handler installed in Enable.
func (m *AdapterManager) Connect(address string) error {
	m.logger.Printf("Attempting to connect to device: %s", address)

	m.mu.RLock()
	device, ok := m.devicesByAddress[address]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown device %s, scan for it first", address)
	}

	if _, err := m.adapter.Connect(device.getAddress(), bluetooth.ConnectionParams{}); err != nil {
		m.logger.Printf("Connection error for %s: %v", address, err)
		return err
	}

	device.setState(Connecting)
	return nil
}

func (m *AdapterManager) Disconnect(address string) error {
	m.logger.Printf("Attempting to disconnect from device: %s", address)

	m.mu.RLock()
	device, ok := m.devicesByAddress[address]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown device %s", address)
	}
	if device.State() == Disconnected {
		return nil
	}
	inner := device.getConnectedDevice()
	if inner == nil {
		return nil
	}
	return inner.Disconnect()
}

// ScanDevices returns devices seen within the scan timeout window.
func (m *AdapterManager) ScanDevices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Device, 0)
	for _, device := range m.devicesByAddress {
		if device.IsRecentlyScanned() {
			result = append(result, device)
		}
	}
	return result
}

// ListenToDeviceList registers a channel for scan result updates, emitted at
// most once per second. Returns a deregistration function.
func (m *AdapterManager) ListenToDeviceList(ch chan<- []Device) func() {
	return m.scanDeviceListStream.Listen(ch)
}

// ListenToConnectionEvents registers a channel for connect and disconnect
// events. Returns a deregistration function.
func (m *AdapterManager) ListenToConnectionEvents(ch chan<- ConnectionEvent) func() {
	return m.connectionStream.Listen(ch)
}

// Shutdown disconnects everything, stops scanning and waits for the
// manager's goroutines.
func (m *AdapterManager) Shutdown() {
	m.logger.Println("Bluetooth manager: shutting down")

	m.mu.RLock()
	var connected []string
	for addr, device := range m.devicesByAddress {
		if device.IsConnected() {
			connected = append(connected, addr)
		}
	}
	m.mu.RUnlock()

	for _, addr := range connected {
		if err := m.Disconnect(addr); err != nil {
			m.logger.Printf("Error disconnecting from %v: %v", addr, err)
		}
	}
	if err := m.StopScan(); err != nil {
		m.logger.Printf("Error stopping scan: %v", err)
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Println("Bluetooth manager: shutdown complete")
}
