package ble

// stack is the part of the host Bluetooth stack TinyGoRadio drives. It is
// blocking, like tinygo-org/bluetooth itself; TinyGoRadio turns it into
// requests and events. UUIDs are passed as strings in any form NormalizeUUID
// accepts.
type stack interface {
	Enable() error
	// SetDisconnectHandler registers fn for peripherals that drop on their own.
	SetDisconnectHandler(fn func(id string))
	// Scan blocks, calling found for every advertisement carrying
	// serviceUUID, until StopScan is called or the scan fails.
	Scan(serviceUUID string, found func(Device)) error
	StopScan() error
	// Connect blocks until a device seen during a scan is connected.
	Connect(id string) (peer, error)
}

// peer is a connected device.
type peer interface {
	DiscoverServices(uuids []string) ([]remoteService, error)
	Disconnect() error
}

type remoteService interface {
	UUID() string
	DiscoverCharacteristics(uuids []string) ([]remoteCharacteristic, error)
}

type remoteCharacteristic interface {
	UUID() string
	EnableNotifications(cb func([]byte)) error
	Write(data []byte, withAck bool) error
}
