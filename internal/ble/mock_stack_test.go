package ble

import (
	"errors"
	"sync"
)

// mockCharacteristic records writes and allows simulating notifications.
type mockCharacteristic struct {
	uuid string

	mu       sync.Mutex
	writes   [][]byte
	acks     []bool
	callback func([]byte)
}

func (c *mockCharacteristic) UUID() string { return c.uuid }

func (c *mockCharacteristic) EnableNotifications(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

func (c *mockCharacteristic) Write(data []byte, withAck bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	c.acks = append(c.acks, withAck)
	return nil
}

// SimulateNotification sends a notification to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

type mockService struct {
	uuid  string
	chars []remoteCharacteristic
}

func (s *mockService) UUID() string { return s.uuid }

func (s *mockService) DiscoverCharacteristics([]string) ([]remoteCharacteristic, error) {
	return s.chars, nil
}

// mockPeer simulates a connected Bluno exposing DFB0/DFB1.
type mockPeer struct {
	char *mockCharacteristic

	mu           sync.Mutex
	disconnected bool
}

func newMockPeer() *mockPeer {
	return &mockPeer{char: &mockCharacteristic{uuid: CharacteristicUUID}}
}

func (p *mockPeer) DiscoverServices([]string) ([]remoteService, error) {
	return []remoteService{&mockService{uuid: ServiceUUID, chars: []remoteCharacteristic{p.char}}}, nil
}

func (p *mockPeer) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = true
	return nil
}

func (p *mockPeer) IsDisconnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnected
}

// mockStack simulates the host Bluetooth stack.
type mockStack struct {
	enableErr error
	adverts   []Device // reported by every scan, in order
	scanFail  error    // ends the scan right after the adverts
	peer      *mockPeer
	gate      chan struct{} // when set, Connect waits for it to close

	mu           sync.Mutex
	stop         chan struct{}
	onDisconnect func(id string)
	handlerCalls int
	connects     []string
}

func newMockStack() *mockStack {
	return &mockStack{peer: newMockPeer()}
}

func (s *mockStack) Enable() error { return s.enableErr }

func (s *mockStack) SetDisconnectHandler(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
	s.handlerCalls++
}

func (s *mockStack) Scan(_ string, found func(Device)) error {
	stop := make(chan struct{})
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()

	for _, d := range s.adverts {
		found(d)
	}
	if s.scanFail != nil {
		return s.scanFail
	}
	<-stop
	return errors.New("mock: scan aborted")
}

func (s *mockStack) StopScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return nil
}

func (s *mockStack) Connect(id string) (peer, error) {
	s.mu.Lock()
	s.connects = append(s.connects, id)
	s.mu.Unlock()
	if s.gate != nil {
		<-s.gate
	}
	return s.peer, nil
}

// SimulateDrop reports a peripheral that went away on its own.
func (s *mockStack) SimulateDrop(id string) {
	s.mu.Lock()
	fn := s.onDisconnect
	s.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}
