package stream

import "fmt"

// State is the lifecycle of a session. Idle moves to Streaming on the first
// chunk; Streaming ends in Completed or Failed. Idle may fail directly when
// the stream never opens. Nothing returns to Idle.
type State int32

const (
	Idle State = iota
	Streaming
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether s is Completed or Failed.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}
