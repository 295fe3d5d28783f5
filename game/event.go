package game

import (
	"time"

	"github.com/a-bouts/regatta-server/race"
)

type EventType int

const (
	MarkRounded EventType = iota
	Collision
	MarkCollision
	TokenPickup
	BoatFinished
	StageChanged
)

func (t EventType) String() string {
	switch t {
	case MarkRounded:
		return "MARK_ROUNDED"
	case Collision:
		return "COLLISION"
	case MarkCollision:
		return "MARK_COLLISION"
	case TokenPickup:
		return "TOKEN_PICKUP"
	case BoatFinished:
		return "BOAT_FINISHED"
	case StageChanged:
		return "STAGE_CHANGED"
	}
	return "UNKNOWN"
}

// Event is produced by the simulation and drained once per tick by the
// broadcast side.
type Event struct {
	Type     EventType
	Time     time.Time
	SourceID int
	// Other is the second boat of a collision or the mark hit.
	Other int
	// Leg is the leg entered after a rounding.
	Leg            int
	CompoundMarkID int
	Gate           bool
	Rounding       string
	Token          race.Token
	Stage          Stage
}
