package race

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/a-bouts/regatta-server/latlon"
)

func TestDefaultCourse(t *testing.T) {
	c := DefaultCourse()

	require.Equal(t, 5, c.Len())
	order := c.MarkOrder()
	require.True(t, order[0].IsGate())
	require.False(t, order[1].IsGate())
	require.True(t, order[2].IsGate())
	require.Equal(t, order[1].ID, order[3].ID)
	require.True(t, order[4].IsGate())
	require.Len(t, c.AllMarks(), 7)
}

func TestNextAndPreviousMark(t *testing.T) {
	c := DefaultCourse()

	next, err := c.NextMark(0)
	require.NoError(t, err)
	require.Equal(t, 2, next.ID)

	_, err = c.PreviousMark(0)
	require.True(t, errors.Is(err, ErrNoPreviousMark))

	prev, err := c.PreviousMark(4)
	require.NoError(t, err)
	require.Equal(t, 2, prev.ID)

	require.True(t, c.IsLastMark(4))
	require.False(t, c.IsLastMark(3))
	_, err = c.NextMark(4)
	require.True(t, errors.Is(err, ErrNoNextMark))

	_, err = c.Mark(5)
	require.True(t, errors.Is(err, ErrNoMark))
}

func TestMidpoint(t *testing.T) {
	c := DefaultCourse()

	start, err := c.Mark(0)
	require.NoError(t, err)
	mid := start.Midpoint()
	require.InDelta(t, 57.6675, mid.Lat, 1e-5)
	require.InDelta(t, 11.82775, mid.Lon, 1e-5)

	windward, err := c.Mark(1)
	require.NoError(t, err)
	require.Equal(t, windward.Marks[0].Position, windward.Midpoint())

	_, err = windward.SubMark(1)
	require.Error(t, err)
}

func TestNewCourseRejectsUnknownMark(t *testing.T) {
	gate := CompoundMark{ID: 1, Marks: []Mark{
		{ID: 1, Position: latlon.LatLon{Lat: 0, Lon: 0}},
		{ID: 2, Position: latlon.LatLon{Lat: 0, Lon: 0.001}},
	}}
	_, err := NewCourse("bad", []CompoundMark{gate}, []Corner{{SeqID: 1, CompoundMarkID: 1}, {SeqID: 2, CompoundMarkID: 9}})
	require.True(t, errors.Is(err, ErrUnknownMark))

	_, err = NewCourse("short", []CompoundMark{gate}, []Corner{{SeqID: 1, CompoundMarkID: 1}})
	require.Error(t, err)
}

func TestTokenType(t *testing.T) {
	for _, token := range TokenSuperset() {
		parsed, err := ParseTokenType(token.Type.String())
		require.NoError(t, err)
		require.Equal(t, token.Type, parsed)
	}
	_, err := ParseTokenType("SHIELD")
	require.True(t, errors.Is(err, ErrUnknownToken))
}

func TestTeamsHaveUniqueSourceIDs(t *testing.T) {
	seen := map[int]bool{}
	for _, team := range Teams() {
		require.False(t, seen[team.SourceID])
		seen[team.SourceID] = true
	}
}
