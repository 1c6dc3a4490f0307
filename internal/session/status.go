package session

import (
	"fmt"
	"time"

	"github.com/chaz8081/bluno-link/internal/ble"
)

// Status is a snapshot published on every transition and every reading.
type Status struct {
	State     State
	SessionID string
	Device    ble.Device
	Value     uint16
	HasValue  bool
	Err       error
	At        time.Time
}

// Text renders the status as a single display line.
func (s Status) Text() string {
	if s.Err != nil && s.State == Ready {
		return fmt.Sprintf("Error: %v", s.Err)
	}
	switch s.State {
	case Unavailable:
		if s.Err != nil {
			return fmt.Sprintf("Bluetooth unavailable (%v)", s.Err)
		}
		return "Bluetooth unavailable"
	case Scanning:
		return "Scanning..."
	case Connecting:
		return "Connecting: " + s.Device.DisplayName()
	case DiscoveringServices, DiscoveringCharacteristics, SubscribingNotifications:
		return "Connected: " + s.Device.DisplayName()
	case Ready:
		if s.HasValue {
			return fmt.Sprintf("Received: %d", s.Value)
		}
		return "Ready: " + s.Device.DisplayName()
	case Disconnected:
		if s.Err != nil {
			return fmt.Sprintf("Disconnected (%v)", s.Err)
		}
		return "Disconnected"
	default:
		if s.Err != nil {
			return fmt.Sprintf("Idle (%v)", s.Err)
		}
		return "Idle"
	}
}
