package session

// State is the connection state of a Manager.
type State int32

const (
	Disconnected State = iota
	Connecting
	Authenticated
	Subscribed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticated:
		return "authenticated"
	case Subscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}
