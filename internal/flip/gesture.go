package flip

import "math"

// Thresholds decide whether a released pan commits the flip.
type Thresholds struct {
	Velocity float64 // points per second
	Progress float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Velocity: 800, Progress: 0.499}
}

// Decide reports whether a pan released with the given velocity and progress
// should complete the flip. A fast swipe commits regardless of distance.
func Decide(velocity, progress float64, th Thresholds) bool {
	return math.Abs(velocity) > th.Velocity || math.Abs(progress) > th.Progress
}
