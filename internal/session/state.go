package session

// State is a step in the session lifecycle.
type State int

const (
	Idle State = iota
	Unavailable
	Scanning
	Connecting
	DiscoveringServices
	DiscoveringCharacteristics
	SubscribingNotifications
	Ready
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Unavailable:
		return "unavailable"
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case DiscoveringServices:
		return "discovering-services"
	case DiscoveringCharacteristics:
		return "discovering-characteristics"
	case SubscribingNotifications:
		return "subscribing"
	case Ready:
		return "ready"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// InSession reports whether the state belongs to a live connection attempt,
// from Connecting through Ready.
func (s State) InSession() bool {
	return s >= Connecting && s <= Ready
}
