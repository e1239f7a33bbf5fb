package videoindex

// State is the lifecycle state of an indexing job.
type State string

const (
	StateSubmitted  State = "Submitted"
	StateProcessing State = "Processing"
	StateProcessed  State = "Processed"
	StateFailed     State = "Failed"
	StateTimedOut   State = "TimedOut"
)

// Terminal reports whether no further transition may leave the state.
func (s State) Terminal() bool {
	switch s {
	case StateProcessed, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// Job identifies one submission to the video indexing service. State only
// changes through polling the remote status or the local timeout watchdog.
type Job struct {
	ID         string
	SourceName string
	State      State
}

// stateFromRemote maps a reported service state onto the local machine.
// Anything that is not terminal counts as still processing.
func stateFromRemote(remote string) State {
	switch remote {
	case "Processed":
		return StateProcessed
	case "Failed":
		return StateFailed
	default:
		return StateProcessing
	}
}
