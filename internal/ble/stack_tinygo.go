package ble

import (
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// tinygoStack adapts *bluetooth.Adapter to stack.
type tinygoStack struct {
	adapter *bluetooth.Adapter

	mu    sync.Mutex
	addrs map[string]bluetooth.Address // every device seen while scanning
}

func newTinygoStack(adapter *bluetooth.Adapter) *tinygoStack {
	return &tinygoStack{
		adapter: adapter,
		addrs:   make(map[string]bluetooth.Address),
	}
}

func (s *tinygoStack) Enable() error {
	return s.adapter.Enable()
}

func (s *tinygoStack) SetDisconnectHandler(fn func(id string)) {
	// Must be registered before Connect is called.
	s.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			fn(device.Address.String())
		}
	})
}

func (s *tinygoStack) Scan(serviceUUID string, found func(Device)) error {
	uuid, err := bluetooth.ParseUUID(NormalizeUUID(serviceUUID))
	if err != nil {
		return fmt.Errorf("ble: parse service UUID: %w", err)
	}
	return s.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !result.HasServiceUUID(uuid) {
			return
		}
		id := result.Address.String()
		s.mu.Lock()
		s.addrs[id] = result.Address
		s.mu.Unlock()
		found(Device{
			ID:   id,
			Name: result.LocalName(),
			RSSI: int(result.RSSI),
		})
	})
}

func (s *tinygoStack) StopScan() error {
	return s.adapter.StopScan()
}

func (s *tinygoStack) Connect(id string) (peer, error) {
	s.mu.Lock()
	addr, ok := s.addrs[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("device %s was not seen during scan", id)
	}
	// Connect blocks with the stack's own timeout.
	device, err := s.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	return &tinygoPeer{device: device}, nil
}

type tinygoPeer struct {
	device bluetooth.Device
}

func (p *tinygoPeer) DiscoverServices(uuids []string) ([]remoteService, error) {
	filter, err := parseUUIDs(uuids)
	if err != nil {
		return nil, err
	}
	svcs, err := p.device.DiscoverServices(filter)
	if err != nil {
		return nil, err
	}
	out := make([]remoteService, len(svcs))
	for i := range svcs {
		out[i] = &tinygoService{svc: svcs[i]}
	}
	return out, nil
}

func (p *tinygoPeer) Disconnect() error {
	return p.device.Disconnect()
}

type tinygoService struct {
	svc bluetooth.DeviceService
}

func (s *tinygoService) UUID() string {
	return s.svc.UUID().String()
}

func (s *tinygoService) DiscoverCharacteristics(uuids []string) ([]remoteCharacteristic, error) {
	filter, err := parseUUIDs(uuids)
	if err != nil {
		return nil, err
	}
	chars, err := s.svc.DiscoverCharacteristics(filter)
	if err != nil {
		return nil, err
	}
	out := make([]remoteCharacteristic, len(chars))
	for i := range chars {
		out[i] = &tinygoCharacteristic{char: chars[i]}
	}
	return out, nil
}

type tinygoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) UUID() string {
	return c.char.UUID().String()
}

func (c *tinygoCharacteristic) EnableNotifications(cb func([]byte)) error {
	return c.char.EnableNotifications(cb)
}

func (c *tinygoCharacteristic) Write(data []byte, withAck bool) error {
	if withAck {
		return writeWithAck(c.char, data)
	}
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func parseUUIDs(filter []string) ([]bluetooth.UUID, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	uuids := make([]bluetooth.UUID, 0, len(filter))
	for _, s := range filter {
		u, err := bluetooth.ParseUUID(NormalizeUUID(s))
		if err != nil {
			return nil, fmt.Errorf("ble: parse UUID %q: %w", s, err)
		}
		uuids = append(uuids, u)
	}
	return uuids, nil
}
