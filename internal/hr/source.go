// Package hr provides heart-rate sources: a live Bluetooth LE monitor and a
// deterministic simulated one. Both publish readings and connection state on
// latest-value streams.
package hr

import (
	"fmt"

	"github.com/lowaak/pulsefit/internal/events"
)

// Bluetooth SIG assigned UUIDs for the heart rate and battery services.
const (
	ServiceUUIDHeartRate         = "0000180d-0000-1000-8000-00805f9b34fb"
	CharUUIDHeartRateMeasurement = "00002a37-0000-1000-8000-00805f9b34fb"
	ServiceUUIDBattery           = "0000180f-0000-1000-8000-00805f9b34fb"
	CharUUIDBatteryLevel         = "00002a19-0000-1000-8000-00805f9b34fb"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateScanning
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateScanning:
		return "Scanning"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Source delivers heart-rate readings. HeartRate carries beats per minute,
// 0 meaning no current reading. Connect is asynchronous; progress is
// reported on the Connection stream. Disconnect is idempotent.
type Source interface {
	HeartRate() *events.Stream[int]
	Connection() *events.Stream[ConnectionState]
	Connect(address string)
	Disconnect()
}

// ParseMeasurement decodes a Heart Rate Measurement characteristic payload.
// Flag bit 0 selects an 8 or 16 bit value.
// See: https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
func ParseMeasurement(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, fmt.Errorf("heart rate data too short: %d bytes", len(buf))
	}

	flags := buf[0]
	if flags&0x01 != 0 {
		if len(buf) < 3 {
			return 0, fmt.Errorf("heart rate UINT16 data too short: %d bytes", len(buf))
		}
		return int(uint16(buf[1]) | uint16(buf[2])<<8), nil
	}
	return int(buf[1]), nil
}
