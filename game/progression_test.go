package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a-bouts/regatta-server/latlon"
	"github.com/a-bouts/regatta-server/race"
	"github.com/a-bouts/regatta-server/wind"
)

func racingGame(t *testing.T) (*Game, *Boat) {
	t.Helper()
	g := newGame(t, 1)
	g.stage = Racing
	g.startTime = t0
	return g, g.boats[101]
}

func sail(g *Game, b *Boat, lat, lon float64) {
	b.LastPosition = b.Position
	b.Position = latlon.LatLon{Lat: lat, Lon: lon}
	g.progress(b, t0.Add(time.Minute))
}

func TestStartCrossingInOrientation(t *testing.T) {
	g, b := racingGame(t)
	b.Position = latlon.LatLon{Lat: 57.6670, Lon: 11.8277}

	sail(g, b, 57.6680, 11.8277)
	require.Equal(t, 1, b.Leg)
	require.Equal(t, StatusRacing, b.Status)
}

func TestStartCrossingInWrongOrientation(t *testing.T) {
	g, b := racingGame(t)
	b.Position = latlon.LatLon{Lat: 57.6680, Lon: 11.8277}

	sail(g, b, 57.6670, 11.8277)
	require.Equal(t, 0, b.Leg)

	// passing outside the line does not count either
	b.Position = latlon.LatLon{Lat: 57.6670, Lon: 11.8300}
	sail(g, b, 57.6680, 11.8300)
	require.Equal(t, 0, b.Leg)
}

func TestStartNeedsRacing(t *testing.T) {
	g := newGame(t, 1)
	require.NoError(t, g.StartRace(t0))
	b := g.boats[101]
	b.Position = latlon.LatLon{Lat: 57.66749, Lon: 11.8277}
	b.Heading = 0
	b.Velocity = 10
	b.SailIn = true
	g.SetWind(wind.Wind{Direction: 90, Speed: 10000})

	// over the line before the gun
	g.Step(t0.Add(time.Second), time.Second)
	require.Equal(t, 0, b.Leg)
	require.Greater(t, b.Position.Lat, 57.6675)

	b.Position = latlon.LatLon{Lat: 57.66749, Lon: 11.8277}
	g.Step(t0.Add(Countdown), time.Second)
	require.Equal(t, Racing, g.Stage())
	require.Equal(t, 1, b.Leg)
}

func TestWindwardMarkNeedsZoneAndLine(t *testing.T) {
	g, b := racingGame(t)
	b.Leg = 1
	b.Position = latlon.LatLon{Lat: 57.6680, Lon: 11.8277}

	// beyond the mark but outside the rounding zone
	sail(g, b, 57.6725, 11.8240)
	sail(g, b, 57.67254, 11.8278)
	require.Equal(t, 1, b.Leg)
	require.True(t, b.rounding.line[0])
	require.False(t, b.rounding.zone[0])

	sail(g, b, 57.6724, 11.8281)
	require.Equal(t, 2, b.Leg)
	require.Equal(t, rounding{}, b.rounding)
	require.Equal(t, 2, b.LastMarkRounded)
}

func TestFullCourse(t *testing.T) {
	g, b := racingGame(t)
	b.Position = latlon.LatLon{Lat: 57.6670, Lon: 11.8277}

	path := []latlon.LatLon{
		{Lat: 57.6680, Lon: 11.8277}, // start
		{Lat: 57.6717, Lon: 11.8283},
		{Lat: 57.6724, Lon: 11.8281}, // windward
		{Lat: 57.6695, Lon: 11.8278},
		{Lat: 57.6686, Lon: 11.8278}, // through the leeward gate
		{Lat: 57.6686, Lon: 11.8290}, // around the eastern mark
		{Lat: 57.6717, Lon: 11.8281},
		{Lat: 57.6724, Lon: 11.8276}, // windward again
		{Lat: 57.6710, Lon: 11.8305},
		{Lat: 57.6700, Lon: 11.8305}, // finish
		{Lat: 57.6710, Lon: 11.8305},
		{Lat: 57.6700, Lon: 11.8305},
	}

	leg := b.Leg
	for _, p := range path {
		sail(g, b, p.Lat, p.Lon)
		require.GreaterOrEqual(t, b.Leg, leg)
		require.LessOrEqual(t, b.Leg, g.course.Len())
		leg = b.Leg
	}

	require.True(t, b.Finished)
	require.Equal(t, g.course.Len(), b.Leg)
	require.Equal(t, StatusFinished, b.Status)

	rounded, finished := 0, 0
	for _, e := range g.DrainEvents() {
		switch e.Type {
		case MarkRounded:
			rounded++
		case BoatFinished:
			finished++
		}
	}
	require.Equal(t, g.course.Len(), rounded)
	require.Equal(t, 1, finished)
}

func TestGateOnSameSideNeedsRounding(t *testing.T) {
	g, b := racingGame(t)
	b.Leg = 2
	b.Position = latlon.LatLon{Lat: 57.6695, Lon: 11.8278}

	// through the middle of the leeward gate and on downwind
	sail(g, b, 57.6686, 11.8278)
	require.Equal(t, 2, b.Leg)
	require.True(t, b.rounding.crossed)

	sail(g, b, 57.6660, 11.8278)
	require.Equal(t, 2, b.Leg)
	require.True(t, b.rounding.crossed)

	// back up and around LG2
	sail(g, b, 57.6686, 11.8278)
	sail(g, b, 57.6686, 11.8290)
	require.Equal(t, 3, b.Leg)

	gate, err := g.course.Mark(2)
	require.NoError(t, err)
	require.True(t, gate.IsGate())
	require.Equal(t, gate.ID, b.LastMarkRounded)
}

func TestFinishEndsRace(t *testing.T) {
	g, b := racingGame(t)
	b.Leg = g.course.Len() - 1
	b.Position = latlon.LatLon{Lat: 57.6710, Lon: 11.8305}
	b.LastPosition = b.Position
	b.Heading = 180
	b.Velocity = 20
	b.SailIn = true
	g.SetWind(wind.Wind{Direction: 90, Speed: 10000})

	g.Step(t0.Add(time.Minute), 10*time.Second)

	require.True(t, b.Finished)
	require.Equal(t, Finished, g.Stage())
	require.Equal(t, RaceFinished, g.RaceStatus(t0.Add(time.Minute)).Phase)
}

func TestGateWithLegsOnOppositeSides(t *testing.T) {
	line := func(id, mark int, lat float64) race.CompoundMark {
		return race.CompoundMark{ID: id, Marks: []race.Mark{
			{ID: mark, Position: latlon.LatLon{Lat: lat, Lon: 11.8268}},
			{ID: mark + 1, Position: latlon.LatLon{Lat: lat, Lon: 11.8288}},
		}}
	}
	course, err := race.NewCourse("straight",
		[]race.CompoundMark{line(1, 10, 57.6675), line(2, 20, 57.6700), line(3, 30, 57.6730)},
		[]race.Corner{{SeqID: 1, CompoundMarkID: 1}, {SeqID: 2, CompoundMarkID: 2}, {SeqID: 3, CompoundMarkID: 3}})
	require.NoError(t, err)

	g, err := New(WithCourse(course))
	require.NoError(t, err)
	_, err = g.AddPlayer(t0)
	require.NoError(t, err)
	g.stage = Racing
	b := g.boats[101]
	b.Leg = 1

	// backward through the gate
	b.Position = latlon.LatLon{Lat: 57.6705, Lon: 11.8278}
	sail(g, b, 57.6695, 11.8278)
	require.Equal(t, 1, b.Leg)

	// crossing alone is enough
	sail(g, b, 57.6705, 11.8278)
	require.Equal(t, 2, b.Leg)
	require.False(t, b.Finished)
}

func TestOutwardBearing(t *testing.T) {
	mark := latlon.LatLon{Lat: 57.6720, Lon: 11.8278}
	south := latlon.LatLon{Lat: 57.6690, Lon: 11.8278}
	east := latlon.LatLon{Lat: 57.6720, Lon: 11.8320}
	west := latlon.LatLon{Lat: 57.6720, Lon: 11.8230}

	require.InDelta(t, 0, latlon.AngleDiff(0, outwardBearing(mark, south, south, race.Port)), 0.1)
	require.InDelta(t, 45, latlon.AngleDiff(0, outwardBearing(mark, south, west, race.Port)), 0.5)

	// legs in line: square to them on the passing side
	require.InDelta(t, 180, outwardBearing(mark, west, east, race.Port), 0.5)
	require.InDelta(t, 0, latlon.AngleDiff(0, outwardBearing(mark, west, east, race.Starboard)), 0.5)
}
