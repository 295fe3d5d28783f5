package game

import (
	"math"
	"time"

	"github.com/a-bouts/regatta-server/latlon"
	"github.com/a-bouts/regatta-server/polar"
	"github.com/a-bouts/regatta-server/race"
	"github.com/a-bouts/regatta-server/wind"
)

// Boat status codes of the race status message.
const (
	StatusUndefined = 0
	StatusPrestart  = 1
	StatusRacing    = 2
	StatusFinished  = 3
)

type Boat struct {
	SourceID  int    `json:"sourceId"`
	Type      string `json:"type"`
	HullNum   string `json:"hullNum"`
	ShortName string `json:"shortName"`
	BoatName  string `json:"boatName"`
	Country   string `json:"country"`

	Position     latlon.LatLon `json:"position"`
	LastPosition latlon.LatLon `json:"-"`
	Heading      float64       `json:"heading"`
	// Velocity in metres per second.
	Velocity float64 `json:"velocity"`
	SailIn   bool    `json:"sailIn"`

	Leg              int       `json:"leg"`
	Status           int       `json:"status"`
	Finished         bool      `json:"finished"`
	FinishTime       time.Time `json:"finishTime,omitempty"`
	LastMarkRounded  int       `json:"lastMarkRounded"`
	LastRoundingTime time.Time `json:"lastRoundingTime,omitempty"`
	Collisions       int       `json:"collisions"`

	turning    bool
	turnTarget float64
	turnDir    float64
	turnSense  float64

	lastCollisionCheck time.Time
	rounding           rounding
}

func newBoat(team race.Team) *Boat {
	return &Boat{
		SourceID:  team.SourceID,
		Type:      team.Type,
		HullNum:   team.HullNum,
		ShortName: team.ShortName,
		BoatName:  team.BoatName,
		Country:   team.Country,
		Status:    StatusUndefined,
	}
}

// targetSpeed returns the polar speed in m/s for the current wind.
func targetSpeed(p *polar.Table, w wind.Wind, heading float64) float64 {
	twa := math.Abs(wind.Twa(heading, float64(w.Direction)))
	return p.BoatSpeed(w.Knots(), twa) / wind.MsToKnots
}

// updateVelocity moves the velocity one tick toward target.
func (b *Boat) updateVelocity(target float64, c Config) {
	if b.SailIn && b.Velocity <= target {
		b.Velocity = math.Min(b.Velocity+target/c.AccelDivisor, target)
		return
	}

	if target > 0 {
		floor := 0.0
		if b.SailIn {
			floor = target
		}
		b.Velocity = math.Max(b.Velocity-target/c.DecelDivisor, floor)
	} else {
		b.Velocity -= b.Velocity * c.IdleDecay
	}

	if b.Velocity < c.MinSpeed {
		b.Velocity = 0
	}
}

func (b *Boat) rotate(delta float64) {
	b.Heading = latlon.Wrap360(b.Heading + delta)
	if delta > 0 {
		b.turnSense = 1
	} else if delta < 0 {
		b.turnSense = -1
	}
}

// sense returns the last turn direction, clockwise when the boat never
// turned.
func (b *Boat) sense() float64 {
	if b.turnSense == 0 {
		return 1
	}
	return b.turnSense
}

// TurnUpwind heads up by one step without passing head to wind.
func (b *Boat) TurnUpwind(windDir, step float64) {
	b.turning = false
	n := wind.Normalized(b.Heading, windDir)
	switch {
	case n == 0:
	case n == 180:
		b.rotate(b.sense() * step)
	case n < 180:
		b.rotate(-math.Min(step, n))
	default:
		b.rotate(math.Min(step, 360-n))
	}
}

// TurnDownwind bears away by one step without passing dead downwind.
func (b *Boat) TurnDownwind(windDir, step float64) {
	b.turning = false
	n := wind.Normalized(b.Heading, windDir)
	switch {
	case n == 180:
	case n == 0:
		b.rotate(b.sense() * step)
	case n < 180:
		b.rotate(math.Min(step, 180-n))
	default:
		b.rotate(-math.Min(step, n-180))
	}
}

// TackGybe turns to the mirror heading about the wind, through the wind when
// sailing upwind and through dead downwind otherwise.
func (b *Boat) TackGybe(windDir float64) {
	n := wind.Normalized(b.Heading, windDir)
	if n == 0 || n == 180 {
		return
	}

	dir := 1.0
	if n < 90 || (n >= 180 && n < 270) {
		dir = -1
	}
	b.startTurn(latlon.Wrap360(windDir+360-n), dir)
}

// TurnToVMG turns to the best upwind or downwind angle on the current tack.
func (b *Boat) TurnToVMG(windDir, tws float64, p *polar.Table) {
	n := wind.Normalized(b.Heading, windDir)

	var opt polar.Optimum
	if math.Min(n, 360-n) < 90 {
		opt = p.BestUpwind(tws)
	} else {
		opt = p.BestDownwind(tws)
	}
	if opt.Speed == 0 {
		return
	}

	// head to wind or dead downwind keeps the previous turn direction
	starboard := n > 180 || (n == 0 && b.sense() < 0) || (n == 180 && b.sense() > 0)
	target := opt.Twa
	if starboard {
		target = 360 - opt.Twa
		if n == 0 {
			n = 360
		}
	}
	if target == n {
		b.turning = false
		return
	}

	dir := 1.0
	if target < n {
		dir = -1
	}
	b.startTurn(latlon.Wrap360(windDir+target), dir)
}

// MaintainHeading cancels a turn in progress.
func (b *Boat) MaintainHeading() {
	b.turning = false
}

func (b *Boat) startTurn(target, dir float64) {
	b.turning = true
	b.turnTarget = target
	b.turnDir = dir
}

// stepTurn advances a turn in progress by at most step degrees.
func (b *Boat) stepTurn(step float64) {
	if !b.turning {
		return
	}
	remaining := latlon.Wrap360(b.turnDir * (b.turnTarget - b.Heading))
	if remaining <= step {
		b.rotate(b.turnDir * remaining)
		b.Heading = b.turnTarget
		b.turning = false
		return
	}
	b.rotate(b.turnDir * step)
}

// Turning reports whether a stepped turn is in progress.
func (b *Boat) Turning() bool {
	return b.turning
}
