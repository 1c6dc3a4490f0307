package ble

// Event is an asynchronous notification from a Radio.
type Event interface {
	isEvent()
}

// PowerStateChanged reports a change in radio availability.
type PowerStateChanged struct {
	State PowerState
}

// ScanStopped reports that a scan ended without being asked to, e.g. because
// the stack returned an error.
type ScanStopped struct {
	Err error
}

// DeviceDiscovered reports one advertising peripheral.
type DeviceDiscovered struct {
	Device Device
}

// Connected reports the outcome of a Connect request.
type Connected struct {
	Device Device
	Err    error
}

// Disconnected reports a dropped or closed connection.
type Disconnected struct {
	Device Device
	Err    error
}

// ServicesDiscovered reports the outcome of a DiscoverServices request.
type ServicesDiscovered struct {
	Device   Device
	Services []Service
	Err      error
}

// CharacteristicsDiscovered reports the outcome of a DiscoverCharacteristics request.
type CharacteristicsDiscovered struct {
	Service         Service
	Characteristics []Characteristic
	Err             error
}

// NotificationStateChanged reports the outcome of a Subscribe request.
type NotificationStateChanged struct {
	Characteristic Characteristic
	Enabled        bool
	Err            error
}

// ValueUpdated carries a notified characteristic value.
type ValueUpdated struct {
	Characteristic Characteristic
	Value          []byte
	Err            error
}

// WriteCompleted reports the outcome of a Write request.
type WriteCompleted struct {
	Characteristic Characteristic
	Err            error
}

func (PowerStateChanged) isEvent()         {}
func (ScanStopped) isEvent()               {}
func (DeviceDiscovered) isEvent()          {}
func (Connected) isEvent()                 {}
func (Disconnected) isEvent()              {}
func (ServicesDiscovered) isEvent()        {}
func (CharacteristicsDiscovered) isEvent() {}
func (NotificationStateChanged) isEvent()  {}
func (ValueUpdated) isEvent()              {}
func (WriteCompleted) isEvent()            {}
