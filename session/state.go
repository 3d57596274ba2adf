package session

// State is the lifecycle stage of the active conversation.
type State int

const (
	StateUnselected State = iota
	StateLoading
	StateReady
	StateSending
)

func (s State) String() string {
	switch s {
	case StateUnselected:
		return "unselected"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	}
	return "unknown"
}
