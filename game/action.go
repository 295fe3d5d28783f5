package game

import (
	"fmt"

	"github.com/pkg/errors"
)

// Action is a steering command of the boat action packet.
type Action int

const (
	VMG             Action = 1
	SailsIn         Action = 2
	SailsOut        Action = 3
	TackGybe        Action = 4
	Upwind          Action = 5
	Downwind        Action = 6
	MaintainHeading Action = 7
)

func (a Action) String() string {
	switch a {
	case VMG:
		return "VMG"
	case SailsIn:
		return "SAILS_IN"
	case SailsOut:
		return "SAILS_OUT"
	case TackGybe:
		return "TACK_GYBE"
	case Upwind:
		return "UPWIND"
	case Downwind:
		return "DOWNWIND"
	case MaintainHeading:
		return "MAINTAIN_HEADING"
	}
	return fmt.Sprintf("ACTION(%d)", int(a))
}

// Apply executes a steering command on the boat of a player. SailsIn toggles
// the sail the way clients send it, SailsOut always eases it.
func (g *Game) Apply(sourceID int, a Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.boats[sourceID]
	if !ok {
		return errors.Wrapf(ErrUnknownPlayer, "source id %d", sourceID)
	}
	windDir := float64(g.wind.Direction)

	switch a {
	case VMG:
		b.TurnToVMG(windDir, g.wind.Knots(), g.polars)
	case SailsIn:
		b.SailIn = !b.SailIn
	case SailsOut:
		b.SailIn = false
	case TackGybe:
		b.TackGybe(windDir)
	case Upwind:
		b.TurnUpwind(windDir, g.config.TurnStep)
	case Downwind:
		b.TurnDownwind(windDir, g.config.TurnStep)
	case MaintainHeading:
		b.MaintainHeading()
	default:
		return errors.Errorf("unknown action %d", int(a))
	}
	return nil
}
