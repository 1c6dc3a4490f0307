// Package ble is the boundary to the platform Bluetooth stack. It defines the
// Radio capability the session controller drives, the handle types that flow
// across it, and the asynchronous events the radio reports back.
package ble

import "strings"

// Bluno serial service UUIDs (16-bit short form).
const (
	ServiceUUID        = "DFB0"
	CharacteristicUUID = "DFB1"
)

// baseUUIDSuffix is the Bluetooth base UUID tail used to expand 16-bit UUIDs.
const baseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

// NormalizeUUID returns the lowercase 128-bit form of a UUID string.
// 16-bit ("DFB0") and 32-bit forms are expanded onto the Bluetooth base UUID.
func NormalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch len(s) {
	case 4:
		return "0000" + s + baseUUIDSuffix
	case 8:
		return s + baseUUIDSuffix
	default:
		return s
	}
}

// SameUUID reports whether two UUID strings name the same attribute.
func SameUUID(a, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}

// PowerState is the radio power/availability state.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PoweredOn
	PoweredOff
	Unsupported
	Unauthorized
)

func (p PowerState) String() string {
	switch p {
	case PoweredOn:
		return "powered-on"
	case PoweredOff:
		return "powered-off"
	case Unsupported:
		return "unsupported"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Device is a peripheral seen during a scan. On macOS the ID is a
// CoreBluetooth UUID rather than a MAC address.
type Device struct {
	ID   string
	Name string
	RSSI int
}

// DisplayName returns the advertised name, or the ID when none was advertised.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Service identifies a discovered GATT service on a connected device.
type Service struct {
	DeviceID string
	UUID     string
}

// Characteristic identifies a discovered GATT characteristic.
type Characteristic struct {
	DeviceID    string
	ServiceUUID string
	UUID        string
}

// Radio abstracts the BLE hardware adapter. Every request returns as soon as
// it has been handed to the stack; the outcome is delivered later on Events.
// A non-nil error from a request means it was rejected outright.
type Radio interface {
	// Events returns the stream of asynchronous radio events.
	Events() <-chan Event
	// Enable powers on the adapter. The resulting state arrives as
	// PowerStateChanged. It may be called again to retry after a failure.
	Enable() error
	// Scan starts discovering peripherals advertising serviceUUID.
	Scan(serviceUUID string) error
	// StopScan ends an active scan.
	StopScan() error
	// Connect opens a connection to a previously discovered device.
	Connect(dev Device) error
	// DiscoverServices looks up services on a connected device.
	DiscoverServices(dev Device, filter []string) error
	// DiscoverCharacteristics looks up characteristics within a service.
	DiscoverCharacteristics(svc Service, filter []string) error
	// Subscribe enables notifications on a characteristic.
	Subscribe(char Characteristic) error
	// Write sends data to a characteristic, optionally waiting for an ATT acknowledgement.
	Write(char Characteristic, data []byte, withAck bool) error
	// Disconnect terminates (or cancels a pending) connection. Unless it
	// returns an error, exactly one Disconnected event for dev follows.
	Disconnect(dev Device) error
}
