package profiler

import "fmt"

// RunState is the phase of a benchmark run.
type RunState int

// RunState constants, in the only order a run may visit them.
const (
	StateIdle RunState = iota
	StateLoading
	StateDecoding
	StateAggregating
	StateDone
)

// String returns the string representation of the state.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoading:
		return "LOADING"
	case StateDecoding:
		return "DECODING"
	case StateAggregating:
		return "AGGREGATING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// next returns the single state reachable from s.
func (s RunState) next() (RunState, bool) {
	if s >= StateDone {
		return s, false
	}
	return s + 1, true
}
