package race

import (
	"github.com/a-bouts/regatta-server/latlon"
)

// Gothenburg bay, where the bundled course is laid.
var CourseCentre = latlon.LatLon{Lat: 57.6700, Lon: 11.8290}

// DefaultCourse returns the bundled windward/leeward course: a start line,
// the windward mark, the leeward gate, the windward mark again and a finish
// line.
func DefaultCourse() *Course {
	marks := []CompoundMark{
		{ID: 1, Name: "Start Line", Marks: []Mark{
			{ID: 122, Name: "PRO", Position: latlon.LatLon{Lat: 57.6675, Lon: 11.8265}},
			{ID: 123, Name: "PIN", Position: latlon.LatLon{Lat: 57.6675, Lon: 11.8290}},
		}},
		{ID: 2, Name: "Windward", Marks: []Mark{
			{ID: 124, Name: "WM", Position: latlon.LatLon{Lat: 57.6720, Lon: 11.8278}},
		}},
		{ID: 3, Name: "Leeward Gate", Marks: []Mark{
			{ID: 125, Name: "LG1", Position: latlon.LatLon{Lat: 57.6690, Lon: 11.8268}},
			{ID: 126, Name: "LG2", Position: latlon.LatLon{Lat: 57.6690, Lon: 11.8288}},
		}},
		{ID: 4, Name: "Finish Line", Marks: []Mark{
			{ID: 127, Name: "FL1", Position: latlon.LatLon{Lat: 57.6705, Lon: 11.8295}},
			{ID: 128, Name: "FL2", Position: latlon.LatLon{Lat: 57.6705, Lon: 11.8315}},
		}},
	}
	order := []Corner{
		{SeqID: 1, CompoundMarkID: 1, Rounding: SP, ZoneSize: 3},
		{SeqID: 2, CompoundMarkID: 2, Rounding: Port, ZoneSize: 3},
		{SeqID: 3, CompoundMarkID: 3, Rounding: SP, ZoneSize: 3},
		{SeqID: 4, CompoundMarkID: 2, Rounding: Port, ZoneSize: 3},
		{SeqID: 5, CompoundMarkID: 4, Rounding: PS, ZoneSize: 3},
	}

	c, err := NewCourse("Gothenburg Windward Leeward", marks, order)
	if err != nil {
		panic(err)
	}
	return c
}
