package game

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/latlon"
	"github.com/a-bouts/regatta-server/race"
)

// rounding tracks the geometric tests of the leg in progress. Index 0 is the
// single mark or the first mark of a gate.
type rounding struct {
	crossed bool
	zone    [2]bool
	line    [2]bool
}

// lineCrossed reports whether from->to crosses the line of gate and ends on
// the towards side of it.
func lineCrossed(gate race.CompoundMark, from, to latlon.LatLon, towards int) bool {
	if towards == 0 || !gate.IsGate() {
		return false
	}
	a, b := gate.Marks[0].Position, gate.Marks[1].Position
	if !latlon.SegmentsCross(from, to, a, b) {
		return false
	}
	return latlon.Side(a, b, to) == towards && latlon.Side(a, b, from) != towards
}

func gateSide(gate race.CompoundMark, p latlon.LatLon) int {
	return latlon.Side(gate.Marks[0].Position, gate.Marks[1].Position, p)
}

// outwardBearing is the direction from mark away from the course, half way
// between the incoming and outgoing legs. When the legs are in line it is
// square to them, on the side the boat passes.
func outwardBearing(mark, prev, next latlon.LatLon, side string) float64 {
	bp := latlon.BearingTo(mark, prev)
	bn := latlon.BearingTo(mark, next)
	diff := latlon.AngleDiff(bp, bn)

	if math.Abs(diff) > 179 {
		if side == race.Starboard {
			return latlon.Wrap360(bn - 90)
		}
		return latlon.Wrap360(bn + 90)
	}
	return latlon.Wrap360(bp + diff/2 + 180)
}

// passedRoundingLine reports whether the boat went around the mark: its
// path crossed the outward ray, or it sits in the 90 degrees wedge around it.
func (g *Game) passedRoundingLine(b *Boat, mark, prev, next latlon.LatLon, side string) bool {
	l := g.config.RoundingLineLength
	outward := outwardBearing(mark, prev, next, side)

	end := latlon.Destination(mark, outward, l)
	if latlon.SegmentsCross(b.LastPosition, b.Position, mark, end) {
		return true
	}
	left := latlon.Destination(mark, outward-45, l)
	right := latlon.Destination(mark, outward+45, l)
	return latlon.InTriangle(b.Position, mark, left, right)
}

func (g *Game) roundingTest(b *Boat, i int, mark race.Mark, prev, next latlon.LatLon, side string) bool {
	r := &b.rounding
	if latlon.DistanceTo(b.Position, mark.Position) <= g.config.RoundingDistance {
		r.zone[i] = true
	}
	if !r.line[i] && g.passedRoundingLine(b, mark.Position, prev, next, side) {
		r.line[i] = true
	}
	return r.zone[i] && r.line[i]
}

// subMarkSide returns the rounding side of the i-th mark of a gate.
func subMarkSide(rounding string, i int) string {
	switch rounding {
	case race.SP:
		if i == 0 {
			return race.Starboard
		}
		return race.Port
	case race.PS:
		if i == 0 {
			return race.Port
		}
		return race.Starboard
	}
	return rounding
}

// progress runs the leg state machine of a boat after it moved.
func (g *Game) progress(b *Boat, now time.Time) {
	if b.Finished {
		return
	}
	c := g.course
	mark, err := c.Mark(b.Leg)
	if err != nil {
		return
	}

	var advanced bool
	switch {
	case c.IsStart(b.Leg):
		advanced = g.startCrossed(b, mark)
	case c.IsLastMark(b.Leg):
		advanced = g.finishCrossed(b, mark)
	case mark.IsGate():
		advanced = g.gatePassed(b, mark)
	default:
		advanced = g.markRounded(b, mark)
	}

	if advanced {
		g.advance(b, mark, now)
	}
}

func (g *Game) startCrossed(b *Boat, start race.CompoundMark) bool {
	next, err := g.course.NextMark(b.Leg)
	if err != nil {
		return false
	}
	return lineCrossed(start, b.LastPosition, b.Position, gateSide(start, next.Midpoint()))
}

func (g *Game) finishCrossed(b *Boat, finish race.CompoundMark) bool {
	prev, err := g.course.PreviousMark(b.Leg)
	if err != nil {
		return false
	}
	return lineCrossed(finish, b.LastPosition, b.Position, -gateSide(finish, prev.Midpoint()))
}

func (g *Game) markRounded(b *Boat, mark race.CompoundMark) bool {
	prev, err := g.course.PreviousMark(b.Leg)
	if err != nil {
		return false
	}
	next, err := g.course.NextMark(b.Leg)
	if err != nil {
		return false
	}
	corner, _ := g.course.Corner(b.Leg)
	return g.roundingTest(b, 0, mark.Marks[0], prev.Midpoint(), next.Midpoint(), corner.Rounding)
}

func (g *Game) gatePassed(b *Boat, gate race.CompoundMark) bool {
	prev, err := g.course.PreviousMark(b.Leg)
	if err != nil {
		return false
	}
	next, err := g.course.NextMark(b.Leg)
	if err != nil {
		return false
	}
	ps := gateSide(gate, prev.Midpoint())
	ns := gateSide(gate, next.Midpoint())

	r := &b.rounding
	if !r.crossed {
		if !lineCrossed(gate, b.LastPosition, b.Position, -ps) {
			return false
		}
		r.crossed = true
		if ps != ns {
			return true
		}
	}

	corner, _ := g.course.Corner(b.Leg)
	first := g.roundingTest(b, 0, gate.Marks[0], prev.Midpoint(), next.Midpoint(), subMarkSide(corner.Rounding, 0))
	second := g.roundingTest(b, 1, gate.Marks[1], prev.Midpoint(), next.Midpoint(), subMarkSide(corner.Rounding, 1))
	return first || second
}

func (g *Game) advance(b *Boat, mark race.CompoundMark, now time.Time) {
	corner, _ := g.course.Corner(b.Leg)

	b.Leg++
	b.rounding = rounding{}
	b.LastMarkRounded = mark.ID
	b.LastRoundingTime = now

	g.emit(Event{
		Type:           MarkRounded,
		Time:           now,
		SourceID:       b.SourceID,
		Leg:            b.Leg,
		CompoundMarkID: mark.ID,
		Gate:           mark.IsGate(),
		Rounding:       corner.Rounding,
	})
	log.WithFields(log.Fields{"source_id": b.SourceID, "mark": mark.Name, "leg": b.Leg}).Info("Mark rounded")

	if b.Leg < g.course.Len() {
		b.Status = StatusRacing
		return
	}

	b.Leg = g.course.Len()
	b.Finished = true
	b.FinishTime = now
	b.Status = StatusFinished
	g.emit(Event{Type: BoatFinished, Time: now, SourceID: b.SourceID, Leg: b.Leg, CompoundMarkID: mark.ID})
	log.WithFields(log.Fields{"source_id": b.SourceID, "boat": b.BoatName}).Info("Boat finished")
}
