package keylamp

type State int32

const (
	Init State = iota
	ProbingDevice
	AwaitingBus
	Subscribed
	Draining
	Stopped
)

var allStates = []State{Init, ProbingDevice, AwaitingBus, Subscribed, Draining, Stopped}

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ProbingDevice:
		return "probing_device"
	case AwaitingBus:
		return "awaiting_bus"
	case Subscribed:
		return "subscribed"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
