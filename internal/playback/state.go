package playback

// State is the playback state published to observers
type State int

const (
	Stopped State = iota
	Playing
	Suspended
)

func (s State) String() string {
	switch s {
	case Playing:
		return "Playing"
	case Suspended:
		return "Suspended"
	default:
		return "Stopped"
	}
}

// DeviceState is the state an output sink reports
type DeviceState int

const (
	DeviceStopped DeviceState = iota
	DevicePlaying
	DeviceSuspended
	DeviceIdle  // all queued audio has been played
	DeviceError // stopped because of a runtime failure
)

func (s DeviceState) String() string {
	switch s {
	case DevicePlaying:
		return "Playing"
	case DeviceSuspended:
		return "Suspended"
	case DeviceIdle:
		return "Idle"
	case DeviceError:
		return "ErrorStopped"
	default:
		return "Stopped"
	}
}

// EventKind tells state notifications from progress notifications
type EventKind int

const (
	EventState EventKind = iota
	EventProgress
)

// DeviceEvent is a notification from an output sink
type DeviceEvent struct {
	Kind EventKind

	// Set for EventState
	State DeviceState
	Err   error

	// Set for EventProgress: payload bytes handed to the hardware
	Position int64
}

// StateEvent builds a state notification
func StateEvent(state DeviceState, err error) DeviceEvent {
	return DeviceEvent{Kind: EventState, State: state, Err: err}
}

// ProgressEvent builds a progress notification
func ProgressEvent(position int64) DeviceEvent {
	return DeviceEvent{Kind: EventProgress, Position: position}
}
