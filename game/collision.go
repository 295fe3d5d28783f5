package game

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/latlon"
)

// collide resolves at most one collision of b moving to candidate, against
// the other boats first then the marks. Bounced boats are moved and slowed.
func (g *Game) collide(b *Boat, candidate latlon.LatLon, now time.Time) bool {
	c := g.config

	for _, other := range g.sortedBoats() {
		if other == b {
			continue
		}
		if latlon.DistanceTo(candidate, other.Position) >= c.BoatCollisionDistance {
			continue
		}

		away := latlon.BearingTo(other.Position, b.Position)
		b.Position = latlon.Destination(b.Position, away, c.BounceDistance)
		other.Position = latlon.Destination(other.Position, latlon.Wrap360(away+180), c.BounceDistance)
		b.Velocity *= c.CollisionPenalty
		other.Velocity *= c.CollisionPenalty
		b.Collisions++
		other.Collisions++

		g.emit(Event{Type: Collision, Time: now, SourceID: b.SourceID, Other: other.SourceID})
		log.WithFields(log.Fields{"source_id": b.SourceID, "other": other.SourceID}).Debug("Boat collision")
		return true
	}

	for _, m := range g.course.AllMarks() {
		if latlon.DistanceTo(candidate, m.Position) >= c.MarkCollisionDistance {
			continue
		}

		away := latlon.BearingTo(m.Position, b.Position)
		b.Position = latlon.Destination(b.Position, away, c.BounceDistance)
		b.Velocity *= c.CollisionPenalty
		b.Collisions++

		g.emit(Event{Type: MarkCollision, Time: now, SourceID: b.SourceID, Other: m.ID})
		log.WithFields(log.Fields{"source_id": b.SourceID, "mark": m.Name}).Debug("Mark collision")
		return true
	}

	return false
}
