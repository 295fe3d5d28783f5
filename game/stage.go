package game

import (
	"github.com/pkg/errors"
)

// ErrStageTransition is returned when a stage change would move backward.
var ErrStageTransition = errors.New("invalid stage transition")

type Stage int

const (
	Lobbying Stage = iota
	PreRace
	Racing
	Finished
	Cancelled
)

var stageNames = []string{"LOBBYING", "PRE_RACE", "RACING", "FINISHED", "CANCELLED"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "UNKNOWN"
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal stages end the server.
func (s Stage) Terminal() bool {
	return s == Finished || s == Cancelled
}

// Running stages are simulated.
func (s Stage) Running() bool {
	return s == PreRace || s == Racing
}

// canMove reports whether from -> to is allowed: forward only, cancel from
// anywhere, nothing out of a terminal stage.
func canMove(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == Cancelled {
		return true
	}
	if to == Finished {
		return from == Racing
	}
	return to == from+1
}
