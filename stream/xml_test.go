package stream

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/a-bouts/regatta-server/race"
)

func TestRaceXMLRoundTrip(t *testing.T) {
	course := race.DefaultCourse().WithTokens(race.TokenSuperset()[:2])

	text, err := MarshalDocument(NewRace(1, course, []int{101, 102}, ts, ts.Add(20*time.Second)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "<?xml"))
	require.Contains(t, text, `<Corner SeqID="1" CompoundMarkID="1" Rounding="SP"`)
	require.Contains(t, text, `TokenType="BOOST"`)

	r, err := UnmarshalRace(text)
	require.NoError(t, err)
	require.Equal(t, 1, r.RaceID)
	require.Len(t, r.Participants, 2)
	require.Equal(t, "2017-07-25T12:00:20+0000", r.RaceStartTime.Time)

	back, err := r.Course(course.Name)
	require.NoError(t, err)
	require.Equal(t, course.Marks, back.Marks)
	require.Equal(t, course.Order, back.Order)
	require.Equal(t, course.Tokens, back.Tokens)
	require.Equal(t, course.Len(), back.Len())
}

func TestRaceXMLUnknownToken(t *testing.T) {
	r := NewRace(1, race.DefaultCourse(), nil, ts, time.Time{})
	r.Tokens = []XMLToken{{TokenType: "ANCHOR"}}

	_, err := r.Course("x")
	require.True(t, errors.Is(err, race.ErrUnknownToken))
}

func TestRegattaXMLRoundTrip(t *testing.T) {
	course := race.DefaultCourse()
	text, err := MarshalDocument(NewRegatta(1, "Gothenburg", course, race.CourseCentre))
	require.NoError(t, err)

	r, err := UnmarshalRegatta(text)
	require.NoError(t, err)
	require.Equal(t, "Gothenburg", r.RegattaName)
	require.Equal(t, course.Name, r.CourseName)
	require.Equal(t, race.CourseCentre.Lat, r.CentralLatitude)
	require.Equal(t, 0, r.UtcOffset)
}

func TestBoatsXMLRoundTrip(t *testing.T) {
	teams := race.Teams()
	text, err := MarshalDocument(NewBoats(teams, ts, 3))
	require.NoError(t, err)
	require.Contains(t, text, `BoatName="Oracle Team USA"`)

	b, err := UnmarshalBoats(text)
	require.NoError(t, err)
	require.Equal(t, 3, b.Version)
	require.Equal(t, teams, b.Teams())
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := UnmarshalBoats("<BoatConfig><Boats>")
	require.Error(t, err)
}
