// Package bletest provides a scriptable in-memory ble.Radio for tests.
package bletest

import (
	"bytes"
	"slices"
	"sync"

	"github.com/chaz8081/bluno-link/internal/ble"
)

// Radio operation names recorded in Call.Op.
const (
	OpEnable                  = "Enable"
	OpScan                    = "Scan"
	OpStopScan                = "StopScan"
	OpConnect                 = "Connect"
	OpDiscoverServices        = "DiscoverServices"
	OpDiscoverCharacteristics = "DiscoverCharacteristics"
	OpSubscribe               = "Subscribe"
	OpWrite                   = "Write"
	OpDisconnect              = "Disconnect"
)

// Call records one request made against the fake radio.
type Call struct {
	Op             string
	UUID           string
	Device         ble.Device
	Service        ble.Service
	Characteristic ble.Characteristic
	Filter         []string
	Data           []byte
	WithAck        bool
}

// Radio records requests and only produces events when told to, except for
// the optional EnableState and ScanResults responses.
type Radio struct {
	// EnableState, when not PowerUnknown, is posted in response to Enable.
	EnableState ble.PowerState
	// ScanResults are posted as DeviceDiscovered in response to Scan.
	ScanResults []ble.Device

	// Errors returned synchronously from the matching request.
	EnableErr  error
	ScanErr    error
	ConnectErr error
	WriteErr   error

	events chan ble.Event

	mu    sync.Mutex
	calls []Call
}

// NewRadio creates a fake radio with a generously buffered event stream.
func NewRadio() *Radio {
	return &Radio{events: make(chan ble.Event, 256)}
}

var _ ble.Radio = (*Radio)(nil)

// Emit pushes an event to whoever is consuming Events.
func (r *Radio) Emit(ev ble.Event) {
	r.events <- ev
}

// Calls returns a copy of every request recorded so far.
func (r *Radio) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo returns the recorded requests for one operation.
func (r *Radio) CallsTo(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded requests.
func (r *Radio) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Radio) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Radio) Events() <-chan ble.Event { return r.events }

func (r *Radio) Enable() error {
	r.record(Call{Op: OpEnable})
	if r.EnableErr != nil {
		return r.EnableErr
	}
	if r.EnableState != ble.PowerUnknown {
		r.Emit(ble.PowerStateChanged{State: r.EnableState})
	}
	return nil
}

func (r *Radio) Scan(serviceUUID string) error {
	r.record(Call{Op: OpScan, UUID: serviceUUID})
	if r.ScanErr != nil {
		return r.ScanErr
	}
	for _, d := range r.ScanResults {
		r.Emit(ble.DeviceDiscovered{Device: d})
	}
	return nil
}

func (r *Radio) StopScan() error {
	r.record(Call{Op: OpStopScan})
	return nil
}

func (r *Radio) Connect(dev ble.Device) error {
	r.record(Call{Op: OpConnect, Device: dev})
	return r.ConnectErr
}

func (r *Radio) DiscoverServices(dev ble.Device, filter []string) error {
	r.record(Call{Op: OpDiscoverServices, Device: dev, Filter: slices.Clone(filter)})
	return nil
}

func (r *Radio) DiscoverCharacteristics(svc ble.Service, filter []string) error {
	r.record(Call{Op: OpDiscoverCharacteristics, Service: svc, Filter: slices.Clone(filter)})
	return nil
}

func (r *Radio) Subscribe(char ble.Characteristic) error {
	r.record(Call{Op: OpSubscribe, Characteristic: char})
	return nil
}

func (r *Radio) Write(char ble.Characteristic, data []byte, withAck bool) error {
	r.record(Call{Op: OpWrite, Characteristic: char, Data: bytes.Clone(data), WithAck: withAck})
	return r.WriteErr
}

// Disconnect records the call and, like a real radio, confirms it with
// exactly one Disconnected event.
func (r *Radio) Disconnect(dev ble.Device) error {
	r.record(Call{Op: OpDisconnect, Device: dev})
	r.Emit(ble.Disconnected{Device: dev})
	return nil
}
