package pipeline

// State is the coordinator's position in a processing run. Runs move
// forward only: Idle, EdgeDetecting, PerspectiveCorrecting,
// QualityAnalyzing, Done. Failed is reachable from any state.
type State int

const (
	StateIdle State = iota
	StateEdgeDetecting
	StatePerspectiveCorrecting
	StateQualityAnalyzing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEdgeDetecting:
		return "edge_detecting"
	case StatePerspectiveCorrecting:
		return "perspective_correcting"
	case StateQualityAnalyzing:
		return "quality_analyzing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// canAdvance reports whether a run in s may move to next.
func (s State) canAdvance(next State) bool {
	switch {
	case s == StateDone || s == StateFailed:
		return false
	case next == StateFailed:
		return true
	default:
		return next == s+1
	}
}
