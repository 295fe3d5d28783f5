package stream

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/a-bouts/regatta-server/latlon"
	"github.com/a-bouts/regatta-server/race"
)

const xmlTimeLayout = "2006-01-02T15:04:05-0700"

type Regatta struct {
	XMLName           xml.Name `xml:"RegattaConfig"`
	RegattaID         int      `xml:"RegattaID"`
	RegattaName       string   `xml:"RegattaName"`
	CourseName        string   `xml:"CourseName"`
	CentralLatitude   float64  `xml:"CentralLatitude"`
	CentralLongitude  float64  `xml:"CentralLongitude"`
	CentralAltitude   float64  `xml:"CentralAltitude"`
	UtcOffset         int      `xml:"UtcOffset"`
	MagneticVariation float64  `xml:"MagneticVariation"`
}

type XMLRaceStartTime struct {
	Time     string `xml:"Time,attr"`
	Postpone bool   `xml:"Postpone,attr"`
}

type XMLYacht struct {
	SourceID int    `xml:"SourceID,attr"`
	Entry    string `xml:"Entry,attr,omitempty"`
}

type XMLMark struct {
	SeqID     int     `xml:"SeqID,attr"`
	Name      string  `xml:"Name,attr"`
	TargetLat float64 `xml:"TargetLat,attr"`
	TargetLng float64 `xml:"TargetLng,attr"`
	SourceID  int     `xml:"SourceID,attr"`
}

type XMLCompoundMark struct {
	CompoundMarkID int       `xml:"CompoundMarkID,attr"`
	Name           string    `xml:"Name,attr"`
	Marks          []XMLMark `xml:"Mark"`
}

type XMLCorner struct {
	SeqID          int    `xml:"SeqID,attr"`
	CompoundMarkID int    `xml:"CompoundMarkID,attr"`
	Rounding       string `xml:"Rounding,attr"`
	ZoneSize       int    `xml:"ZoneSize,attr"`
}

type XMLToken struct {
	TokenType string  `xml:"TokenType,attr"`
	TargetLat float64 `xml:"TargetLat,attr"`
	TargetLng float64 `xml:"TargetLng,attr"`
}

// Race is the course description sent to every client.
type Race struct {
	XMLName          xml.Name          `xml:"Race"`
	RaceID           int               `xml:"RaceID"`
	RaceType         string            `xml:"RaceType"`
	CreationTimeDate string            `xml:"CreationTimeDate"`
	RaceStartTime    XMLRaceStartTime  `xml:"RaceStartTime"`
	Participants     []XMLYacht        `xml:"Participants>Yacht"`
	CompoundMarks    []XMLCompoundMark `xml:"Course>CompoundMark"`
	Sequence         []XMLCorner       `xml:"CompoundMarkSequence>Corner"`
	Tokens           []XMLToken        `xml:"Tokens>Token"`
}

type XMLBoat struct {
	SourceID  int    `xml:"SourceID,attr"`
	Type      string `xml:"Type,attr"`
	HullNum   string `xml:"HullNum,attr"`
	ShortName string `xml:"ShortName,attr"`
	BoatName  string `xml:"BoatName,attr"`
	Country   string `xml:"Country,attr"`
}

// Boats is the roster of the boats in the race.
type Boats struct {
	XMLName  xml.Name  `xml:"BoatConfig"`
	Modified string    `xml:"Modified"`
	Version  int       `xml:"Version"`
	Boats    []XMLBoat `xml:"Boats>Boat"`
}

// MarshalDocument renders one of the documents with its XML declaration.
func MarshalDocument(v interface{}) (string, error) {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal xml document failed")
	}
	return xml.Header + string(b), nil
}

func UnmarshalRegatta(text string) (Regatta, error) {
	r := Regatta{}
	if err := xml.NewDecoder(strings.NewReader(text)).Decode(&r); err != nil {
		return r, errors.Wrap(err, "unmarshal regatta failed")
	}
	return r, nil
}

func UnmarshalRace(text string) (Race, error) {
	r := Race{}
	if err := xml.NewDecoder(strings.NewReader(text)).Decode(&r); err != nil {
		return r, errors.Wrap(err, "unmarshal race failed")
	}
	return r, nil
}

func UnmarshalBoats(text string) (Boats, error) {
	b := Boats{}
	if err := xml.NewDecoder(strings.NewReader(text)).Decode(&b); err != nil {
		return b, errors.Wrap(err, "unmarshal boats failed")
	}
	return b, nil
}

func NewRegatta(id int, name string, course *race.Course, centre latlon.LatLon) Regatta {
	return Regatta{
		RegattaID:        id,
		RegattaName:      name,
		CourseName:       course.Name,
		CentralLatitude:  centre.Lat,
		CentralLongitude: centre.Lon,
	}
}

// NewRace describes the course, the participants and the current tokens. A
// zero start time is sent empty.
func NewRace(id int, course *race.Course, participants []int, created, start time.Time) Race {
	r := Race{
		RaceID:           id,
		RaceType:         "Fleet",
		CreationTimeDate: formatTime(created),
		RaceStartTime:    XMLRaceStartTime{Time: formatTime(start)},
	}
	for _, p := range participants {
		r.Participants = append(r.Participants, XMLYacht{SourceID: p})
	}
	for _, cm := range course.Marks {
		x := XMLCompoundMark{CompoundMarkID: cm.ID, Name: cm.Name}
		for i, m := range cm.Marks {
			x.Marks = append(x.Marks, XMLMark{
				SeqID:     i + 1,
				Name:      m.Name,
				TargetLat: m.Position.Lat,
				TargetLng: m.Position.Lon,
				SourceID:  m.ID,
			})
		}
		r.CompoundMarks = append(r.CompoundMarks, x)
	}
	for _, c := range course.Order {
		r.Sequence = append(r.Sequence, XMLCorner(c))
	}
	for _, t := range course.Tokens {
		r.Tokens = append(r.Tokens, XMLToken{
			TokenType: t.Type.String(),
			TargetLat: t.Position.Lat,
			TargetLng: t.Position.Lon,
		})
	}
	return r
}

// Course rebuilds the course, tokens included.
func (r Race) Course(name string) (*race.Course, error) {
	marks := make([]race.CompoundMark, 0, len(r.CompoundMarks))
	for _, x := range r.CompoundMarks {
		cm := race.CompoundMark{ID: x.CompoundMarkID, Name: x.Name}
		for _, m := range x.Marks {
			cm.Marks = append(cm.Marks, race.Mark{
				ID:       m.SourceID,
				Name:     m.Name,
				Position: latlon.LatLon{Lat: m.TargetLat, Lon: m.TargetLng},
			})
		}
		marks = append(marks, cm)
	}
	order := make([]race.Corner, 0, len(r.Sequence))
	for _, c := range r.Sequence {
		order = append(order, race.Corner(c))
	}
	course, err := race.NewCourse(name, marks, order)
	if err != nil {
		return nil, err
	}

	tokens := make([]race.Token, 0, len(r.Tokens))
	for _, t := range r.Tokens {
		tt, err := race.ParseTokenType(t.TokenType)
		if err != nil {
			return nil, errors.Wrap(err, "unmarshal race tokens failed")
		}
		tokens = append(tokens, race.Token{Type: tt, Position: latlon.LatLon{Lat: t.TargetLat, Lon: t.TargetLng}})
	}
	return course.WithTokens(tokens), nil
}

func NewBoats(teams []race.Team, modified time.Time, version int) Boats {
	b := Boats{Modified: formatTime(modified), Version: version}
	for _, t := range teams {
		b.Boats = append(b.Boats, XMLBoat(t))
	}
	return b
}

// Teams is the inverse of NewBoats.
func (b Boats) Teams() []race.Team {
	teams := make([]race.Team, 0, len(b.Boats))
	for _, x := range b.Boats {
		teams = append(teams, race.Team(x))
	}
	return teams
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(xmlTimeLayout)
}
