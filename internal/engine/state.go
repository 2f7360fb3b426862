package engine

import "fmt"

// State is the lifecycle state of an Engine.
type State int32

const (
	Idle State = iota
	Running
	Paused
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
