package service

// ScanState is where a scan is in its lifecycle.
type ScanState int

const (
	StateIdle ScanState = iota
	StateFetching
	StateProcessing
	StateCheckpoint
	StateReconciling
	StateDone
	StateCancelled
	StateFailed
)

func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateProcessing:
		return "processing"
	case StateCheckpoint:
		return "checkpoint"
	case StateReconciling:
		return "reconciling"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s ScanState) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}
