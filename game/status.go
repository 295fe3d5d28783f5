package game

import (
	"time"

	"github.com/a-bouts/regatta-server/latlon"
	"github.com/a-bouts/regatta-server/wind"
)

// Race status codes of the race status message.
const (
	RaceNotActive   = 0
	RaceWarning     = 1
	RacePreparatory = 2
	RaceStarted     = 3
	RaceFinished    = 4
	RaceTerminated  = 8
	RacePrestart    = 10
)

type BoatStatus struct {
	SourceID          int       `json:"sourceId"`
	Status            int       `json:"status"`
	Leg               int       `json:"leg"`
	Penalties         int       `json:"penalties"`
	EstTimeToNextMark time.Time `json:"estTimeToNextMark"`
	EstTimeAtFinish   time.Time `json:"estTimeAtFinish"`
}

type Status struct {
	Time      time.Time    `json:"time"`
	RaceID    int          `json:"raceId"`
	Stage     Stage        `json:"stage"`
	Phase     int          `json:"phase"`
	StartTime time.Time    `json:"startTime"`
	Wind      wind.Wind    `json:"wind"`
	Boats     []BoatStatus `json:"boats"`
}

// phase derives the race status code from the countdown.
func (g *Game) phase(now time.Time) int {
	switch g.stage {
	case Lobbying:
		return RacePrestart
	case PreRace:
		remaining := g.startTime.Sub(now)
		switch {
		case remaining <= g.config.PreparatoryTime:
			return RacePreparatory
		case remaining <= g.config.WarningTime:
			return RaceWarning
		}
		return RacePrestart
	case Racing:
		return RaceStarted
	case Finished:
		return RaceFinished
	case Cancelled:
		return RaceTerminated
	}
	return RaceNotActive
}

// RaceStatus snapshots the race for the periodic status broadcast.
func (g *Game) RaceStatus(now time.Time) Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Status{
		Time:      now,
		RaceID:    g.config.RaceID,
		Stage:     g.stage,
		Phase:     g.phase(now),
		StartTime: g.startTime,
		Wind:      g.wind,
	}
	for _, b := range g.sortedBoats() {
		s.Boats = append(s.Boats, g.boatStatus(b, now))
	}
	return s
}

func (g *Game) boatStatus(b *Boat, now time.Time) BoatStatus {
	bs := BoatStatus{
		SourceID:  b.SourceID,
		Status:    b.Status,
		Leg:       b.Leg,
		Penalties: b.Collisions,
	}
	if b.Finished {
		bs.EstTimeToNextMark = b.FinishTime
		bs.EstTimeAtFinish = b.FinishTime
		return bs
	}
	if b.Velocity <= 0 {
		return bs
	}

	order := g.course.MarkOrder()
	if b.Leg >= len(order) {
		return bs
	}
	toNext := latlon.DistanceTo(b.Position, order[b.Leg].Midpoint())
	remaining := toNext
	for i := b.Leg; i+1 < len(order); i++ {
		remaining += latlon.DistanceTo(order[i].Midpoint(), order[i+1].Midpoint())
	}

	bs.EstTimeToNextMark = now.Add(time.Duration(toNext / b.Velocity * float64(time.Second)))
	bs.EstTimeAtFinish = now.Add(time.Duration(remaining / b.Velocity * float64(time.Second)))
	return bs
}
