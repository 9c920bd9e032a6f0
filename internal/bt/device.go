package bt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

type DeviceState int

const (
	Disconnected DeviceState = iota
	Connecting
	Connected
)

// Device is one Bluetooth peripheral seen during scanning or currently
// connected. Characteristic operations require a connected device.
type Device interface {
	AddressString() string
	LocalName() string
	ScanRSSI() (int16, error)
	ScanLastSeen() time.Time
	IsConnected() bool
	State() DeviceState
	IsRecentlyScanned() bool
	HasServiceUUID(uuid string) bool
	WaitForConnection(timeout time.Duration) error
	EnableNotifications(serviceUuid, characteristicUuid string, callback func(buf []byte)) error
	DisableNotifications(serviceUuid, characteristicUuid string) error
	ReadCharacteristic(serviceUuid, characteristicUuid string) ([]byte, error)
}

type deviceImpl struct {
	address      bluetooth.Address
	scanTimeout  time.Duration
	logger       *log.Logger
	scanLastSeen time.Time

	mu              sync.RWMutex
	scanResult      *bluetooth.ScanResult
	connectedDevice *bluetooth.Device // nil when not connected
	state           DeviceState
	serviceUuidStrs []string

	// Serializes characteristic operations; discovering a service while
	// another is in use interrupts the earlier one
	bleMu                  sync.Mutex
	serviceByUuid          map[string]*bluetooth.DeviceService
	characteristicByUuid   map[string]*bluetooth.DeviceCharacteristic
	serviceCharsDiscovered map[string]bool
	allServicesDiscovered  bool
}

func newDeviceImpl(logger *log.Logger, address bluetooth.Address, scanTimeout time.Duration) *deviceImpl {
	if logger == nil {
		panic("logger must be non nil")
	}
	if scanTimeout <= 0 {
		panic("scanTimeout must be > 0")
	}
	return &deviceImpl{
		logger:                 logger,
		address:                address,
		scanTimeout:            scanTimeout,
		scanLastSeen:           time.Unix(0, 0),
		state:                  Disconnected,
		serviceByUuid:          make(map[string]*bluetooth.DeviceService),
		characteristicByUuid:   make(map[string]*bluetooth.DeviceCharacteristic),
		serviceCharsDiscovered: make(map[string]bool),
	}
}

func (d *deviceImpl) getAddress() bluetooth.Address {
	return d.address
}

func (d *deviceImpl) AddressString() string {
	return d.address.String()
}

func (d *deviceImpl) LocalName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.scanResult != nil {
		if name := d.scanResult.LocalName(); name != "" {
			return name
		}
	}
	return "Unknown"
}

func (d *deviceImpl) ScanRSSI() (int16, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.scanResult == nil {
		return 0, errors.New("no rssi available")
	}
	return d.scanResult.RSSI, nil
}

func (d *deviceImpl) ScanLastSeen() time.Time {
	return d.scanLastSeen
}

func (d *deviceImpl) setScanLastSeen(t time.Time) {
	d.scanLastSeen = t
}

func (d *deviceImpl) State() DeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *deviceImpl) setState(state DeviceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

func (d *deviceImpl) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connectedDevice != nil
}

func (d *deviceImpl) IsRecentlyScanned() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.scanResult == nil {
		return false
	}
	return time.Since(d.scanLastSeen) <= d.scanTimeout
}

func (d *deviceImpl) HasServiceUUID(uuid string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.serviceUuidStrs {
		if u == uuid {
			return true
		}
	}
	return false
}

func (d *deviceImpl) setServiceUUIDs(serviceUuids []bluetooth.UUID) {
	strs := make([]string, 0, len(serviceUuids))
	for _, uuid := range serviceUuids {
		strs = append(strs, uuid.String())
	}
	d.mu.Lock()
	d.serviceUuidStrs = strs
	d.mu.Unlock()
}

func (d *deviceImpl) setScanResult(scanResult *bluetooth.ScanResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanResult = scanResult
}

func (d *deviceImpl) setConnectedDevice(device *bluetooth.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectedDevice = device
	if device == nil {
		// Service handles are invalid across a reconnect
		d.serviceByUuid = make(map[string]*bluetooth.DeviceService)
		d.characteristicByUuid = make(map[string]*bluetooth.DeviceCharacteristic)
		d.serviceCharsDiscovered = make(map[string]bool)
		d.allServicesDiscovered = false
	}
}

func (d *deviceImpl) getConnectedDevice() *bluetooth.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connectedDevice
}

func (d *deviceImpl) WaitForConnection(timeout time.Duration) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeoutChan := time.After(timeout)
	for {
		select {
		case <-ticker.C:
			if d.IsConnected() {
				return nil
			}
		case <-timeoutChan:
			return fmt.Errorf("timeout after %v waiting for connection", timeout)
		}
	}
}

func (d *deviceImpl) EnableNotifications(
	serviceUuidStr string,
	characteristicUuidStr string,
	callback func(buf []byte)) error {

	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	characteristic, err := d.getDeviceCharacteristic(serviceUuidStr, characteristicUuidStr)
	if err != nil {
		return err
	}

	if err := characteristic.EnableNotifications(callback); err != nil {
		return fmt.Errorf("failed to enable notifications on %s: %w", characteristicUuidStr, err)
	}

	d.logger.Printf("Device %s: notifications enabled for %s", d.AddressString(), characteristicUuidStr)
	return nil
}

func (d *deviceImpl) DisableNotifications(serviceUuidStr, characteristicUuidStr string) error {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	characteristic, err := d.getDeviceCharacteristic(serviceUuidStr, characteristicUuidStr)
	if err != nil {
		return err
	}

	// nil callback disables notifications
	if err := characteristic.EnableNotifications(nil); err != nil {
		return fmt.Errorf("failed to disable notifications on %s: %w", characteristicUuidStr, err)
	}
	return nil
}

func (d *deviceImpl) ReadCharacteristic(serviceUuidStr, characteristicUuidStr string) ([]byte, error) {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	characteristic, err := d.getDeviceCharacteristic(serviceUuidStr, characteristicUuidStr)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 512)
	n, err := characteristic.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read characteristic %s: %w", characteristicUuidStr, err)
	}
	return buf[:n], nil
}

// getDeviceService discovers services lazily. All services are discovered in
// one pass and cached; callers hold bleMu.
func (d *deviceImpl) getDeviceService(serviceUuidStr string) (*bluetooth.DeviceService, error) {
	if service, ok := d.serviceByUuid[serviceUuidStr]; ok {
		return service, nil
	}

	connectedDevice := d.getConnectedDevice()
	if connectedDevice == nil {
		return nil, errors.New("no connected device")
	}

	if !d.allServicesDiscovered {
		d.logger.Printf("Device %s: discovering services", d.AddressString())
		deviceServices, err := connectedDevice.DiscoverServices(nil)
		if err != nil {
			return nil, fmt.Errorf("error discovering services: %w", err)
		}
		for i := range deviceServices {
			svc := &deviceServices[i]
			d.serviceByUuid[svc.UUID().String()] = svc
		}
		d.allServicesDiscovered = true
	}

	service, ok := d.serviceByUuid[serviceUuidStr]
	if !ok {
		return nil, fmt.Errorf("service %v not found on device", serviceUuidStr)
	}
	return service, nil
}

func (d *deviceImpl) getDeviceCharacteristic(serviceUuidStr, charUuidStr string) (*bluetooth.DeviceCharacteristic, error) {
	comboUuidStr := serviceUuidStr + "_" + charUuidStr

	if characteristic, ok := d.characteristicByUuid[comboUuidStr]; ok {
		return characteristic, nil
	}

	if !d.serviceCharsDiscovered[serviceUuidStr] {
		service, err := d.getDeviceService(serviceUuidStr)
		if err != nil {
			return nil, err
		}

		discovered, err := service.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("could not discover characteristics for service %v: %w", serviceUuidStr, err)
		}
		for i := range discovered {
			char := &discovered[i]
			d.characteristicByUuid[serviceUuidStr+"_"+char.UUID().String()] = char
		}
		d.serviceCharsDiscovered[serviceUuidStr] = true
	}

	characteristic, ok := d.characteristicByUuid[comboUuidStr]
	if !ok {
		return nil, fmt.Errorf("characteristic %v not found in service %v", charUuidStr, serviceUuidStr)
	}
	return characteristic, nil
}
