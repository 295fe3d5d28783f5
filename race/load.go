package race

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/a-bouts/regatta-server/latlon"
)

type yamlMark struct {
	ID   int     `yaml:"id"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type yamlCompoundMark struct {
	ID    int        `yaml:"id"`
	Name  string     `yaml:"name"`
	Marks []yamlMark `yaml:"marks"`
}

type yamlCourse struct {
	Name  string             `yaml:"name"`
	Marks []yamlCompoundMark `yaml:"marks"`
	Order []struct {
		SeqID          int    `yaml:"seqId"`
		CompoundMarkID int    `yaml:"compoundMarkId"`
		Rounding       string `yaml:"rounding"`
		ZoneSize       int    `yaml:"zoneSize"`
	} `yaml:"order"`
}

// ParseCourse reads a course description:
//
//	name: Gothenburg
//	marks:
//	  - id: 2
//	    name: Windward
//	    marks: [{id: 124, name: WM, lat: 57.672, lon: 11.8278}]
//	order:
//	  - {seqId: 2, compoundMarkId: 2, rounding: Port}
func ParseCourse(data []byte) (*Course, error) {
	var y yamlCourse
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, errors.Wrap(err, "unmarshal course failed")
	}

	marks := make([]CompoundMark, 0, len(y.Marks))
	for _, cm := range y.Marks {
		m := CompoundMark{ID: cm.ID, Name: cm.Name}
		for _, sub := range cm.Marks {
			m.Marks = append(m.Marks, Mark{ID: sub.ID, Name: sub.Name, Position: latlon.LatLon{Lat: sub.Lat, Lon: sub.Lon}})
		}
		marks = append(marks, m)
	}
	order := make([]Corner, 0, len(y.Order))
	for _, c := range y.Order {
		order = append(order, Corner{SeqID: c.SeqID, CompoundMarkID: c.CompoundMarkID, Rounding: c.Rounding, ZoneSize: c.ZoneSize})
	}
	return NewCourse(y.Name, marks, order)
}

func LoadCourse(file string) (*Course, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read course %s failed", file)
	}
	return ParseCourse(data)
}
