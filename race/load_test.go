package race

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const straightCourse = `
name: Straight
marks:
  - id: 1
    name: Start
    marks:
      - {id: 10, name: S1, lat: 57.0, lon: 11.0}
      - {id: 11, name: S2, lat: 57.0, lon: 11.001}
  - id: 2
    name: Finish
    marks:
      - {id: 20, name: F1, lat: 57.01, lon: 11.0}
      - {id: 21, name: F2, lat: 57.01, lon: 11.001}
order:
  - {seqId: 1, compoundMarkId: 1, rounding: SP, zoneSize: 3}
  - {seqId: 2, compoundMarkId: 2, rounding: PS, zoneSize: 3}
`

func TestLoadCourse(t *testing.T) {
	file := filepath.Join(t.TempDir(), "course.yaml")
	require.NoError(t, os.WriteFile(file, []byte(straightCourse), 0o644))

	c, err := LoadCourse(file)
	require.NoError(t, err)
	require.Equal(t, "Straight", c.Name)
	require.Equal(t, 2, c.Len())
	require.True(t, c.IsStart(0))
	require.True(t, c.IsLastMark(1))

	finish, err := c.Mark(1)
	require.NoError(t, err)
	require.Equal(t, 21, finish.Marks[1].ID)
	require.Equal(t, 57.01, finish.Marks[1].Position.Lat)
}

func TestLoadCourseErrors(t *testing.T) {
	_, err := LoadCourse(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseCourse([]byte("name: [unterminated"))
	require.Error(t, err)

	_, err = ParseCourse([]byte("name: Empty\n"))
	require.Error(t, err)
}
