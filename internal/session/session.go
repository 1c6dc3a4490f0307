package session

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/chaz8081/bluno-link/internal/ble"
)

// Session is one connection attempt. The write handle is only populated once
// notifications are confirmed, so a non-ready session can never be written to.
type Session struct {
	ID        string
	Device    ble.Device
	StartedAt time.Time

	service    *ble.Service
	notifyChar *ble.Characteristic
	writeUUID  string
	writeChar  *ble.Characteristic

	value    uint16
	hasValue bool
	lastErr  error
}

func newSession(dev ble.Device, now time.Time) *Session {
	return &Session{
		ID:        newSessionID(now),
		Device:    dev,
		StartedAt: now,
	}
}

func newSessionID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// WriteCharacteristic returns the handle commands are written to, if the
// session has reached Ready.
func (s *Session) WriteCharacteristic() (ble.Characteristic, bool) {
	if s == nil || s.writeChar == nil {
		return ble.Characteristic{}, false
	}
	return *s.writeChar, true
}

// LastValue returns the most recent decoded reading.
func (s *Session) LastValue() (uint16, bool) {
	if s == nil {
		return 0, false
	}
	return s.value, s.hasValue
}

// LastErr returns the most recent error recorded against the session.
func (s *Session) LastErr() error {
	if s == nil {
		return nil
	}
	return s.lastErr
}

func (s *Session) isTarget(dev ble.Device) bool {
	return dev.ID == s.Device.ID
}
