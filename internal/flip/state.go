package flip

import "fmt"

// Direction is the way a page turns.
type Direction int

const (
	// NextPage turns the right-hand page over to reveal the following spread.
	NextPage Direction = iota
	// LastPage turns the left-hand page back to the previous spread.
	LastPage
)

func (d Direction) String() string {
	switch d {
	case NextPage:
		return "next"
	case LastPage:
		return "last"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Sign is the rotation sign of the direction. Turning forward rotates
// clockwise around the spine, which is the negative angle.
func (d Direction) Sign() float64 {
	if d == NextPage {
		return -1
	}
	return 1
}

// Step is the page index delta of one flip. Each flip exchanges a whole spread.
func (d Direction) Step() int {
	if d == NextPage {
		return 2
	}
	return -2
}

// Phase is the coarse state of the machine.
type Phase int

const (
	Idle Phase = iota
	FlippingToNext
	FlippingToLast
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FlippingToNext:
		return "flippingToNext"
	case FlippingToLast:
		return "flippingToLast"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the machine state. Progress is in [0, 1] and is zero while Idle.
type State struct {
	Phase    Phase   `json:"phase"`
	Progress float64 `json:"progress"`
}

func (s State) IsIdle() bool { return s.Phase == Idle }

// Direction reports the flip direction of a non-idle state.
func (s State) Direction() (Direction, bool) {
	switch s.Phase {
	case FlippingToNext:
		return NextPage, true
	case FlippingToLast:
		return LastPage, true
	default:
		return 0, false
	}
}

func phaseFor(d Direction) Phase {
	if d == NextPage {
		return FlippingToNext
	}
	return FlippingToLast
}
