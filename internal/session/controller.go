// Package session drives a single BLE session against a Bluno-style serial
// peripheral: scan, connect, discover, subscribe, then exchange readings and
// commands. All radio events, user requests and step timeouts are handled on
// one goroutine (Run); status leaves through a single-consumer channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/bluno-link/internal/ble"
	"github.com/chaz8081/bluno-link/internal/ble/protocol"
)

// Options configures the session controller.
type Options struct {
	ServiceUUID        string
	CharacteristicUUID string
	// WriteCharacteristicUUID overrides the write target. Empty means commands
	// go to CharacteristicUUID.
	WriteCharacteristicUUID string
	// NameFilter, when set, restricts the first match to devices whose
	// advertised name contains it.
	NameFilter   string
	CommandWidth int

	ConnectTimeout   time.Duration
	DiscoveryTimeout time.Duration
	SubscribeTimeout time.Duration

	AutoRescan bool
	RescanMax  int // max rescan backoff in seconds

	StatusBuffer  int
	RequestBuffer int

	// Sink receives every decoded reading. It is called on the event loop and must not block.
	Sink ValueSink
}

// ValueSink consumes decoded readings.
type ValueSink interface {
	Deliver(v uint16)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		ServiceUUID:        ble.ServiceUUID,
		CharacteristicUUID: ble.CharacteristicUUID,
		CommandWidth:       protocol.DefaultCommandWidth,
		ConnectTimeout:     10 * time.Second,
		DiscoveryTimeout:   5 * time.Second,
		SubscribeTimeout:   5 * time.Second,
		RescanMax:          30,
		StatusBuffer:       16,
		RequestBuffer:      16,
	}
}

// Request is work posted to the event loop from another goroutine.
type Request interface {
	isRequest()
}

// SendRequest asks the controller to write a command.
type SendRequest struct {
	Value uint64
}

// RescanRequest asks the controller to start scanning again from Idle.
type RescanRequest struct{}

func (SendRequest) isRequest()   {}
func (RescanRequest) isRequest() {}

// Controller owns at most one Session and moves it through the lifecycle.
// Apart from Enqueue and Statuses, its methods must be called from the
// goroutine running Run (or, in tests, from a single goroutine).
type Controller struct {
	radio ble.Radio
	opts  Options

	state   State
	sess    *Session
	radioOn bool

	requests chan Request
	statuses chan Status

	stepTimer     *time.Timer
	rescanTimer   *time.Timer
	rescanAttempt int

	// detaching counts Disconnect requests whose confirming Disconnected
	// event has not arrived yet, per device ID.
	detaching map[string]int

	now func() time.Time
}

// New creates a Controller driving radio.
func New(radio ble.Radio, opts Options) (*Controller, error) {
	if radio == nil {
		return nil, errors.New("session: radio must not be nil")
	}
	def := DefaultOptions()
	if opts.ServiceUUID == "" {
		opts.ServiceUUID = def.ServiceUUID
	}
	if opts.CharacteristicUUID == "" {
		opts.CharacteristicUUID = def.CharacteristicUUID
	}
	if opts.CommandWidth == 0 {
		opts.CommandWidth = def.CommandWidth
	}
	if !protocol.ValidCommandWidth(opts.CommandWidth) {
		return nil, fmt.Errorf("session: command width must be 1, 2, 4 or 8, got %d", opts.CommandWidth)
	}
	if opts.RescanMax <= 0 {
		opts.RescanMax = def.RescanMax
	}
	if opts.StatusBuffer <= 0 {
		opts.StatusBuffer = def.StatusBuffer
	}
	if opts.RequestBuffer <= 0 {
		opts.RequestBuffer = def.RequestBuffer
	}

	return &Controller{
		radio:       radio,
		opts:        opts,
		requests:    make(chan Request, opts.RequestBuffer),
		statuses:    make(chan Status, opts.StatusBuffer),
		stepTimer:   stoppedTimer(),
		rescanTimer: stoppedTimer(),
		detaching:   make(map[string]int),
		now:         time.Now,
	}, nil
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Session returns the active session, or nil.
func (c *Controller) Session() *Session { return c.sess }

// Statuses returns the status stream. It has exactly one intended consumer;
// when that consumer falls behind, older statuses are dropped.
func (c *Controller) Statuses() <-chan Status { return c.statuses }

// Enqueue posts a request to the event loop without blocking. It reports
// false if the request queue is full. Safe for concurrent use.
func (c *Controller) Enqueue(r Request) bool {
	select {
	case c.requests <- r:
		return true
	default:
		slog.Warn("[SESSION] request queue full, dropping request", "request", fmt.Sprintf("%T", r))
		return false
	}
}

// Run enables the radio and processes events until ctx is cancelled. The
// status channel is closed when Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.statuses)
	defer c.shutdown()

	c.publish(nil)
	if err := c.radio.Enable(); err != nil {
		err = wrap(ErrRadioUnavailable, err)
		slog.Error("[SESSION] enable radio failed", "error", err)
		c.transition(Unavailable, err)
		c.scheduleRescan()
	}

	events := c.radio.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("session: radio event stream closed")
			}
			c.Handle(ev)
		case req := <-c.requests:
			c.handleRequest(req)
		case <-c.stepTimer.C:
			c.onStepTimeout()
		case <-c.rescanTimer.C:
			c.onRescanTimer()
		}
	}
}

func (c *Controller) shutdown() {
	c.stepTimer.Stop()
	c.rescanTimer.Stop()
	if c.sess != nil {
		slog.Info("[SESSION] closing session", "session", c.sess.ID)
		if err := c.radio.Disconnect(c.sess.Device); err != nil {
			slog.Warn("[SESSION] disconnect on shutdown failed", "error", err)
		}
	}
}

func (c *Controller) handleRequest(req Request) {
	switch r := req.(type) {
	case SendRequest:
		_ = c.SendValue(r.Value)
	case RescanRequest:
		if err := c.Rescan(); err != nil {
			slog.Warn("[SESSION] rescan refused", "error", err)
		}
	}
}

// Handle dispatches one radio event.
func (c *Controller) Handle(ev ble.Event) {
	switch ev := ev.(type) {
	case ble.PowerStateChanged:
		c.OnRadioStateChanged(ev.State)
	case ble.ScanStopped:
		c.OnScanStopped(ev.Err)
	case ble.DeviceDiscovered:
		c.OnDeviceDiscovered(ev.Device)
	case ble.Connected:
		c.OnConnected(ev.Device, ev.Err)
	case ble.Disconnected:
		c.OnDisconnected(ev.Device, ev.Err)
	case ble.ServicesDiscovered:
		c.OnServicesDiscovered(ev.Services, ev.Err)
	case ble.CharacteristicsDiscovered:
		c.OnCharacteristicsDiscovered(ev.Characteristics, ev.Err)
	case ble.NotificationStateChanged:
		c.OnNotificationStateChanged(ev.Characteristic, ev.Enabled, ev.Err)
	case ble.ValueUpdated:
		c.OnValueUpdated(ev.Value, ev.Err)
	case ble.WriteCompleted:
		c.OnWriteCompleted(ev.Characteristic, ev.Err)
	default:
		slog.Warn("[SESSION] unknown radio event", "event", fmt.Sprintf("%T", ev))
	}
}

// OnRadioStateChanged starts scanning when the radio comes up and tears the
// session down when it goes away.
func (c *Controller) OnRadioStateChanged(ps ble.PowerState) {
	slog.Info("[SESSION] radio state changed", "radio", ps, "state", c.state)
	switch ps {
	case ble.PowerUnknown:
		return
	case ble.PoweredOn:
		c.radioOn = true
		if c.state == Idle || c.state == Unavailable {
			c.startScan()
		}
		return
	}

	c.radioOn = false
	c.rescanTimer.Stop()
	err := wrap(ErrRadioUnavailable, errors.New(ps.String()))
	if c.sess != nil {
		c.sess.lastErr = err
	}
	c.clearSession()
	c.transition(Unavailable, err)
	c.scheduleRescan()
}

// OnScanStopped handles a scan that ended on its own.
func (c *Controller) OnScanStopped(err error) {
	if c.state != Scanning {
		return
	}
	if err != nil {
		err = wrap(ErrRadioUnavailable, err)
		slog.Error("[SESSION] scan stopped", "error", err)
	}
	c.transition(Idle, err)
	c.scheduleRescan()
}

// OnDeviceDiscovered connects to the first matching device and ignores the rest.
func (c *Controller) OnDeviceDiscovered(dev ble.Device) {
	slog.Debug("[SESSION] device discovered", "device", dev.ID, "name", dev.Name, "rssi", dev.RSSI)
	if c.state != Scanning || c.sess != nil {
		slog.Debug("[SESSION] ignoring discovery, session already active", "device", dev.ID)
		return
	}
	if !c.matches(dev) {
		slog.Debug("[SESSION] ignoring discovery, name does not match", "device", dev.ID, "name", dev.Name)
		return
	}

	c.sess = newSession(dev, c.now())
	slog.Info("[SESSION] device selected", "session", c.sess.ID, "device", dev.ID, "name", dev.Name)

	if err := c.radio.StopScan(); err != nil {
		slog.Warn("[SESSION] stop scan failed", "error", err)
	}
	if err := c.radio.Connect(dev); err != nil {
		c.fail(wrap(ErrConnectFailed, err))
		return
	}
	c.transition(Connecting, nil)
}

// OnConnected begins service discovery filtered to the serial service.
func (c *Controller) OnConnected(dev ble.Device, err error) {
	if c.state != Connecting || !c.sess.isTarget(dev) {
		slog.Debug("[SESSION] ignoring connect result", "device", dev.ID, "state", c.state)
		return
	}
	if err != nil {
		c.fail(wrap(ErrConnectFailed, err))
		return
	}
	slog.Info("[SESSION] connected", "session", c.sess.ID, "device", c.sess.Device.ID)

	if err := c.radio.DiscoverServices(c.sess.Device, []string{c.opts.ServiceUUID}); err != nil {
		c.fail(wrap(ErrServiceDiscoveryFailed, err))
		return
	}
	c.transition(DiscoveringServices, nil)
}

// OnServicesDiscovered picks the serial service and asks for its characteristics.
func (c *Controller) OnServicesDiscovered(services []ble.Service, err error) {
	if c.state != DiscoveringServices {
		slog.Debug("[SESSION] ignoring services", "state", c.state)
		return
	}
	if err != nil {
		c.fail(wrap(ErrServiceDiscoveryFailed, err))
		return
	}

	var svc *ble.Service
	for i := range services {
		if ble.SameUUID(services[i].UUID, c.opts.ServiceUUID) {
			svc = &services[i]
			break
		}
	}
	if svc == nil {
		c.fail(wrap(ErrServiceDiscoveryFailed, fmt.Errorf("%w: %s", errServiceAbsent, c.opts.ServiceUUID)))
		return
	}
	c.sess.service = svc

	filter := []string{c.opts.CharacteristicUUID}
	if w := c.opts.WriteCharacteristicUUID; w != "" && !ble.SameUUID(w, c.opts.CharacteristicUUID) {
		filter = append(filter, w)
	}
	if err := c.radio.DiscoverCharacteristics(*svc, filter); err != nil {
		c.fail(wrap(ErrCharacteristicDiscoveryFailed, err))
		return
	}
	c.transition(DiscoveringCharacteristics, nil)
}

// OnCharacteristicsDiscovered stores the notify handle and subscribes to it.
func (c *Controller) OnCharacteristicsDiscovered(chars []ble.Characteristic, err error) {
	if c.state != DiscoveringCharacteristics {
		slog.Debug("[SESSION] ignoring characteristics", "state", c.state)
		return
	}
	if err != nil {
		c.fail(wrap(ErrCharacteristicDiscoveryFailed, err))
		return
	}

	notify := findCharacteristic(chars, c.opts.CharacteristicUUID)
	if notify == nil {
		c.fail(wrap(ErrCharacteristicDiscoveryFailed, fmt.Errorf("%w: %s", errCharacteristicAbsent, c.opts.CharacteristicUUID)))
		return
	}
	writeUUID := notify.UUID
	if w := c.opts.WriteCharacteristicUUID; w != "" {
		wc := findCharacteristic(chars, w)
		if wc == nil {
			c.fail(wrap(ErrCharacteristicDiscoveryFailed, fmt.Errorf("%w: %s", errCharacteristicAbsent, w)))
			return
		}
		writeUUID = wc.UUID
	}
	c.sess.notifyChar = notify
	c.sess.writeUUID = writeUUID

	if err := c.radio.Subscribe(*notify); err != nil {
		c.fail(wrap(ErrNotificationSubscribeFailed, err))
		return
	}
	c.transition(SubscribingNotifications, nil)
}

func findCharacteristic(chars []ble.Characteristic, uuid string) *ble.Characteristic {
	for i := range chars {
		if ble.SameUUID(chars[i].UUID, uuid) {
			c := chars[i]
			return &c
		}
	}
	return nil
}

// OnNotificationStateChanged promotes the session to Ready once notifications
// are confirmed. Later confirmations are only logged.
func (c *Controller) OnNotificationStateChanged(char ble.Characteristic, enabled bool, err error) {
	if c.sess == nil || !c.state.InSession() {
		return
	}
	if err != nil {
		c.fail(wrap(ErrNotificationSubscribeFailed, err))
		return
	}
	if enabled {
		slog.Info("[SESSION] notifications enabled", "session", c.sess.ID, "characteristic", char.UUID)
	} else {
		slog.Info("[SESSION] notifications disabled", "session", c.sess.ID, "characteristic", char.UUID)
	}

	if c.state != SubscribingNotifications || !enabled {
		return
	}
	w := *c.sess.notifyChar
	w.UUID = c.sess.writeUUID
	c.sess.writeChar = &w
	c.rescanAttempt = 0
	c.transition(Ready, nil)
}

// OnValueUpdated decodes a notified reading. A malformed payload is reported
// but leaves the session Ready and the last value untouched.
func (c *Controller) OnValueUpdated(data []byte, err error) {
	if c.state != Ready {
		slog.Debug("[SESSION] ignoring value outside ready state", "state", c.state, "bytes", len(data))
		return
	}
	if err != nil {
		c.fail(wrap(ErrValueUpdateFailed, err))
		return
	}

	v, err := protocol.DecodeValue(data)
	if err != nil {
		err = wrap(ErrValueDecode, err)
		c.sess.lastErr = err
		slog.Warn("[SESSION] discarding reading", "session", c.sess.ID, "error", err)
		c.publish(err)
		return
	}

	c.sess.value = v
	c.sess.hasValue = true
	c.sess.lastErr = nil
	slog.Debug("[SESSION] reading received", "session", c.sess.ID, "value", v)
	if c.opts.Sink != nil {
		c.opts.Sink.Deliver(v)
	}
	c.publish(nil)
}

// OnWriteCompleted reports failed acknowledged writes. They do not end the session.
func (c *Controller) OnWriteCompleted(char ble.Characteristic, err error) {
	if c.sess == nil {
		return
	}
	if err == nil {
		slog.Debug("[SESSION] write acknowledged", "session", c.sess.ID, "characteristic", char.UUID)
		return
	}
	err = wrap(ErrWriteFailed, err)
	c.sess.lastErr = err
	slog.Error("[SESSION] write failed", "session", c.sess.ID, "error", err)
	c.publish(err)
}

// OnDisconnected resets the session and returns to Idle. Confirmations of
// disconnects the controller asked for itself are consumed here.
func (c *Controller) OnDisconnected(dev ble.Device, err error) {
	if n := c.detaching[dev.ID]; n > 0 {
		if n == 1 {
			delete(c.detaching, dev.ID)
		} else {
			c.detaching[dev.ID] = n - 1
		}
		slog.Debug("[SESSION] disconnect confirmed", "device", dev.ID, "error", err)
		return
	}
	if c.sess == nil || !c.sess.isTarget(dev) {
		slog.Debug("[SESSION] ignoring disconnect", "device", dev.ID)
		return
	}
	if err != nil {
		slog.Warn("[SESSION] disconnected with error", "session", c.sess.ID, "error", err)
		c.sess.lastErr = err
	} else {
		slog.Info("[SESSION] disconnected", "session", c.sess.ID, "device", c.sess.Device.ID)
	}
	c.transition(Disconnected, err)
	c.clearSession()
	c.transition(Idle, err)
	c.scheduleRescan()
}

// SendValue writes a command to the ready session. Without one it returns
// ErrNoActiveSession and does nothing else.
func (c *Controller) SendValue(n uint64) error {
	char, ok := c.sess.WriteCharacteristic()
	if !ok || c.state != Ready {
		slog.Warn("[SESSION] send ignored, no ready session", "value", n, "state", c.state)
		c.publish(ErrNoActiveSession)
		return ErrNoActiveSession
	}

	buf, err := protocol.EncodeCommand(n, c.opts.CommandWidth)
	if err != nil {
		return c.sendFailed(n, wrap(ErrCommandRange, err))
	}
	if err := c.radio.Write(char, buf, true); err != nil {
		return c.sendFailed(n, wrap(ErrWriteFailed, err))
	}
	slog.Info("[SESSION] command sent", "session", c.sess.ID, "value", n, "bytes", len(buf))
	return nil
}

func (c *Controller) sendFailed(n uint64, err error) error {
	c.sess.lastErr = err
	slog.Error("[SESSION] send failed", "session", c.sess.ID, "value", n, "error", err)
	c.publish(err)
	return err
}

// Rescan restarts scanning from Idle. While the radio is off it asks the
// radio to power on again instead; scanning then starts on PoweredOn. In any
// other state it is a no-op.
func (c *Controller) Rescan() error {
	if !c.radioOn {
		return c.reenableRadio()
	}
	if c.state != Idle {
		slog.Debug("[SESSION] rescan ignored", "state", c.state)
		return nil
	}
	c.rescanTimer.Stop()
	c.startScan()
	return nil
}

func (c *Controller) reenableRadio() error {
	slog.Info("[SESSION] enabling radio", "state", c.state)
	if err := c.radio.Enable(); err != nil {
		err = wrap(ErrRadioUnavailable, err)
		slog.Error("[SESSION] enable radio failed", "error", err)
		c.publish(err)
		return err
	}
	return nil
}

func (c *Controller) startScan() {
	if err := c.radio.Scan(c.opts.ServiceUUID); err != nil {
		err = wrap(ErrRadioUnavailable, err)
		slog.Error("[SESSION] scan request rejected", "error", err)
		c.transition(Idle, err)
		return
	}
	slog.Info("[SESSION] scanning", "service", c.opts.ServiceUUID)
	c.transition(Scanning, nil)
}

func (c *Controller) matches(dev ble.Device) bool {
	if c.opts.NameFilter == "" {
		return true
	}
	return containsFold(dev.Name, c.opts.NameFilter)
}

// fail ends the current attempt: Disconnected, then Idle.
func (c *Controller) fail(err error) {
	if c.sess != nil {
		c.sess.lastErr = err
		slog.Error("[SESSION] session failed", "session", c.sess.ID, "state", c.state, "error", err)
		if derr := c.radio.Disconnect(c.sess.Device); derr != nil {
			slog.Warn("[SESSION] disconnect after failure", "error", derr)
		} else {
			c.detaching[c.sess.Device.ID]++
		}
	} else {
		slog.Error("[SESSION] session failed", "state", c.state, "error", err)
	}
	c.transition(Disconnected, err)
	c.clearSession()
	c.transition(Idle, err)
	c.scheduleRescan()
}

func (c *Controller) onStepTimeout() {
	if !c.state.InSession() || c.state == Ready {
		return
	}
	slog.Warn("[SESSION] step timed out", "state", c.state)
	switch c.state {
	case Connecting:
		c.fail(wrap(ErrConnectFailed, errStepTimeout))
	case DiscoveringServices:
		c.fail(wrap(ErrServiceDiscoveryFailed, errStepTimeout))
	case DiscoveringCharacteristics:
		c.fail(wrap(ErrCharacteristicDiscoveryFailed, errStepTimeout))
	case SubscribingNotifications:
		c.fail(wrap(ErrNotificationSubscribeFailed, errStepTimeout))
	}
}

func (c *Controller) clearSession() {
	c.sess = nil
	c.stepTimer.Stop()
}

// transition moves to s, re-arms the step timer and publishes a status.
func (c *Controller) transition(s State, err error) {
	if s != c.state {
		slog.Debug("[SESSION] transition", "from", c.state, "to", s)
	}
	c.state = s
	c.armStep()
	c.publish(err)
}

func (c *Controller) armStep() {
	var d time.Duration
	switch c.state {
	case Connecting:
		d = c.opts.ConnectTimeout
	case DiscoveringServices, DiscoveringCharacteristics:
		d = c.opts.DiscoveryTimeout
	case SubscribingNotifications:
		d = c.opts.SubscribeTimeout
	}
	if d <= 0 {
		c.stepTimer.Stop()
		return
	}
	c.stepTimer.Reset(d)
}

// Snapshot returns the status the controller would publish now.
func (c *Controller) Snapshot() Status {
	st := Status{State: c.state, At: c.now()}
	if c.sess != nil {
		st.SessionID = c.sess.ID
		st.Device = c.sess.Device
		st.Value, st.HasValue = c.sess.LastValue()
	}
	return st
}

// publish sends a status, dropping the oldest queued one if the consumer lags.
func (c *Controller) publish(err error) {
	st := c.Snapshot()
	st.Err = err
	for {
		select {
		case c.statuses <- st:
			return
		default:
			select {
			case <-c.statuses:
			default:
			}
		}
	}
}
