package ble

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// eventBuffer bounds how far the radio may run ahead of the event consumer.
const eventBuffer = 64

var errNotConnected = errors.New("device disconnected")

// TinyGoRadio implements Radio on top of tinygo-org/bluetooth. Each blocking
// stack call runs on its own goroutine and reports back through Events.
// On macOS, device IDs are CoreBluetooth UUIDs, not MAC addresses.
type TinyGoRadio struct {
	stack stack

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// mu protects everything below.
	mu            sync.Mutex
	handlerSet    bool
	seen          map[string]bool // every device seen while scanning
	reported      map[string]bool // devices reported during the current scan
	peers         map[string]peer // connected devices
	pending       map[string]bool // connects in flight
	cancelled     map[string]bool // pending connects to drop on completion
	services      map[Service]remoteService
	chars         map[Characteristic]remoteCharacteristic
	scanning      bool
	stopRequested bool
}

// NewTinyGoRadio creates a Radio backed by the default system adapter.
func NewTinyGoRadio() *TinyGoRadio {
	return newRadio(newTinygoStack(bluetooth.DefaultAdapter))
}

func newRadio(s stack) *TinyGoRadio {
	return &TinyGoRadio{
		stack:     s,
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
		seen:      make(map[string]bool),
		reported:  make(map[string]bool),
		peers:     make(map[string]peer),
		pending:   make(map[string]bool),
		cancelled: make(map[string]bool),
		services:  make(map[Service]remoteService),
		chars:     make(map[Characteristic]remoteCharacteristic),
	}
}

// Compile-time check that TinyGoRadio implements Radio.
var _ Radio = (*TinyGoRadio)(nil)

func (r *TinyGoRadio) Events() <-chan Event {
	return r.events
}

// post delivers an event unless the radio has been closed.
func (r *TinyGoRadio) post(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *TinyGoRadio) Enable() error {
	r.mu.Lock()
	register := !r.handlerSet
	r.handlerSet = true
	r.mu.Unlock()
	if register {
		r.stack.SetDisconnectHandler(r.peripheralDropped)
	}

	go func() {
		if err := r.stack.Enable(); err != nil {
			slog.Error("[BLE] enable adapter failed", "error", err)
			r.post(PowerStateChanged{State: Unsupported})
			return
		}
		r.post(PowerStateChanged{State: PoweredOn})
	}()
	return nil
}

// peripheralDropped handles a link lost without a Disconnect request.
func (r *TinyGoRadio) peripheralDropped(id string) {
	r.mu.Lock()
	_, ok := r.peers[id]
	r.forgetLocked(id)
	r.mu.Unlock()
	if ok {
		r.post(Disconnected{Device: Device{ID: id}})
	}
}

func (r *TinyGoRadio) Scan(serviceUUID string) error {
	if _, err := parseUUIDs([]string{serviceUUID}); err != nil {
		return err
	}

	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return errors.New("ble: scan already in progress")
	}
	r.scanning = true
	r.stopRequested = false
	r.reported = make(map[string]bool)
	r.mu.Unlock()

	go func() {
		err := r.stack.Scan(serviceUUID, func(dev Device) {
			r.mu.Lock()
			dup := r.reported[dev.ID]
			r.reported[dev.ID] = true
			r.seen[dev.ID] = true
			r.mu.Unlock()
			if !dup {
				r.post(DeviceDiscovered{Device: dev})
			}
		})

		r.mu.Lock()
		stopped := r.stopRequested
		r.scanning = false
		r.mu.Unlock()

		if err != nil && !stopped {
			r.post(ScanStopped{Err: fmt.Errorf("ble: scan: %w", err)})
		}
	}()
	return nil
}

func (r *TinyGoRadio) StopScan() error {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return nil
	}
	r.stopRequested = true
	r.mu.Unlock()
	return r.stack.StopScan()
}

func (r *TinyGoRadio) Connect(dev Device) error {
	r.mu.Lock()
	ok := r.seen[dev.ID]
	if ok {
		r.pending[dev.ID] = true
		delete(r.cancelled, dev.ID)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: connect to %s: device was not seen during scan", dev.ID)
	}

	go func() {
		// The caller enforces its own deadline and cancels through Disconnect.
		p, err := r.stack.Connect(dev.ID)

		r.mu.Lock()
		delete(r.pending, dev.ID)
		cancelled := r.cancelled[dev.ID]
		delete(r.cancelled, dev.ID)
		if err == nil && !cancelled {
			r.peers[dev.ID] = p
		}
		r.mu.Unlock()

		switch {
		case cancelled:
			if err == nil {
				_ = p.Disconnect()
			}
			r.post(Disconnected{Device: dev})
		case err != nil:
			r.post(Connected{Device: dev, Err: fmt.Errorf("ble: connect to %s: %w", dev.ID, err)})
		default:
			r.post(Connected{Device: dev})
		}
	}()
	return nil
}

func (r *TinyGoRadio) DiscoverServices(dev Device, filter []string) error {
	if _, err := parseUUIDs(filter); err != nil {
		return err
	}
	r.mu.Lock()
	p, ok := r.peers[dev.ID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: discover services: %s is not connected", dev.ID)
	}

	go func() {
		svcs, err := p.DiscoverServices(filter)
		if err != nil {
			r.post(ServicesDiscovered{Device: dev, Err: fmt.Errorf("ble: discover services: %w", err)})
			return
		}
		found := make([]Service, 0, len(svcs))
		r.mu.Lock()
		current := r.peers[dev.ID] == p
		for _, s := range svcs {
			if !current {
				break
			}
			svc := Service{DeviceID: dev.ID, UUID: NormalizeUUID(s.UUID())}
			r.services[svc] = s
			found = append(found, svc)
		}
		r.mu.Unlock()
		if !current {
			r.post(ServicesDiscovered{Device: dev, Err: fmt.Errorf("ble: discover services: %w", errNotConnected)})
			return
		}
		r.post(ServicesDiscovered{Device: dev, Services: found})
	}()
	return nil
}

func (r *TinyGoRadio) DiscoverCharacteristics(svc Service, filter []string) error {
	if _, err := parseUUIDs(filter); err != nil {
		return err
	}
	r.mu.Lock()
	service, ok := r.services[svc]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: discover characteristics: unknown service %s", svc.UUID)
	}

	go func() {
		chars, err := service.DiscoverCharacteristics(filter)
		if err != nil {
			r.post(CharacteristicsDiscovered{Service: svc, Err: fmt.Errorf("ble: discover characteristics: %w", err)})
			return
		}
		found := make([]Characteristic, 0, len(chars))
		r.mu.Lock()
		_, current := r.services[svc]
		for _, ch := range chars {
			if !current {
				break
			}
			c := Characteristic{
				DeviceID:    svc.DeviceID,
				ServiceUUID: svc.UUID,
				UUID:        NormalizeUUID(ch.UUID()),
			}
			r.chars[c] = ch
			found = append(found, c)
		}
		r.mu.Unlock()
		if !current {
			r.post(CharacteristicsDiscovered{Service: svc, Err: fmt.Errorf("ble: discover characteristics: %w", errNotConnected)})
			return
		}
		r.post(CharacteristicsDiscovered{Service: svc, Characteristics: found})
	}()
	return nil
}

func (r *TinyGoRadio) Subscribe(char Characteristic) error {
	c, err := r.characteristic(char)
	if err != nil {
		return err
	}

	go func() {
		err := c.EnableNotifications(func(buf []byte) {
			r.post(ValueUpdated{Characteristic: char, Value: bytes.Clone(buf)})
		})
		if err != nil {
			err = fmt.Errorf("ble: enable notifications: %w", err)
		}
		r.post(NotificationStateChanged{Characteristic: char, Enabled: err == nil, Err: err})
	}()
	return nil
}

func (r *TinyGoRadio) Write(char Characteristic, data []byte, withAck bool) error {
	c, err := r.characteristic(char)
	if err != nil {
		return err
	}
	buf := bytes.Clone(data)

	go func() {
		err := c.Write(buf, withAck)
		if err != nil {
			err = fmt.Errorf("ble: write: %w", err)
		}
		r.post(WriteCompleted{Characteristic: char, Err: err})
	}()
	return nil
}

func (r *TinyGoRadio) Disconnect(dev Device) error {
	r.mu.Lock()
	p, connected := r.peers[dev.ID]
	r.forgetLocked(dev.ID)
	pending := !connected && r.pending[dev.ID]
	if pending {
		r.cancelled[dev.ID] = true
	}
	r.mu.Unlock()

	switch {
	case connected:
		go func() {
			err := p.Disconnect()
			if err != nil {
				err = fmt.Errorf("ble: disconnect %s: %w", dev.ID, err)
			}
			r.post(Disconnected{Device: dev, Err: err})
		}()
	case pending:
		// The connect goroutine reports Disconnected once the stack returns.
	default:
		go r.post(Disconnected{Device: dev})
	}
	return nil
}

// Close stops any scan and releases the event stream. Pending stack calls
// finish in the background; their results are dropped.
func (r *TinyGoRadio) Close() error {
	err := r.StopScan()
	r.closeOnce.Do(func() {
		close(r.done)
	})
	return err
}

func (r *TinyGoRadio) characteristic(char Characteristic) (remoteCharacteristic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[char]
	if !ok {
		return nil, fmt.Errorf("ble: unknown characteristic %s", char.UUID)
	}
	return c, nil
}

// forgetLocked drops every handle belonging to a device (caller must hold mu).
func (r *TinyGoRadio) forgetLocked(id string) {
	delete(r.peers, id)
	for svc := range r.services {
		if svc.DeviceID == id {
			delete(r.services, svc)
		}
	}
	for c := range r.chars {
		if c.DeviceID == id {
			delete(r.chars, c)
		}
	}
}
