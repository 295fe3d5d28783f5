package race

import (
	"github.com/pkg/errors"

	"github.com/a-bouts/regatta-server/latlon"
)

var (
	ErrNoMark         = errors.New("no mark at this leg")
	ErrNoNextMark     = errors.New("no next mark")
	ErrNoPreviousMark = errors.New("no previous mark")
	ErrUnknownMark    = errors.New("unknown compound mark")
)

// Rounding sides of a corner, as carried by the race XML.
const (
	Port      = "Port"
	Starboard = "Stbd"
	SP        = "SP"
	PS        = "PS"
)

type Mark struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Position latlon.LatLon `json:"position"`
}

// CompoundMark is a single mark or a gate made of two marks.
type CompoundMark struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Marks []Mark `json:"marks"`
}

func (c CompoundMark) IsGate() bool {
	return len(c.Marks) == 2
}

// Midpoint is the mark itself for a single mark, the middle of the line for
// a gate.
func (c CompoundMark) Midpoint() latlon.LatLon {
	if c.IsGate() {
		return latlon.Midpoint(c.Marks[0].Position, c.Marks[1].Position)
	}
	if len(c.Marks) == 0 {
		return latlon.LatLon{}
	}
	return c.Marks[0].Position
}

// SubMark returns the i-th mark, 0 based.
func (c CompoundMark) SubMark(i int) (Mark, error) {
	if i < 0 || i >= len(c.Marks) {
		return Mark{}, errors.Wrapf(ErrNoMark, "compound mark %d has no sub mark %d", c.ID, i)
	}
	return c.Marks[i], nil
}

// Corner is one entry of the mark sequence.
type Corner struct {
	SeqID          int    `json:"seqId"`
	CompoundMarkID int    `json:"compoundMarkId"`
	Rounding       string `json:"rounding"`
	ZoneSize       int    `json:"zoneSize"`
}

// Course is immutable once built.
type Course struct {
	Name   string         `json:"name"`
	Marks  []CompoundMark `json:"marks"`
	Order  []Corner       `json:"order"`
	Tokens []Token        `json:"tokens"`

	order []CompoundMark
}

// NewCourse resolves the mark sequence against the compound marks.
func NewCourse(name string, marks []CompoundMark, order []Corner) (*Course, error) {
	c := &Course{Name: name, Marks: marks, Order: order}

	byID := make(map[int]CompoundMark, len(marks))
	for _, m := range marks {
		if len(m.Marks) == 0 || len(m.Marks) > 2 {
			return nil, errors.Errorf("compound mark %d has %d marks", m.ID, len(m.Marks))
		}
		byID[m.ID] = m
	}
	if len(order) < 2 {
		return nil, errors.Errorf("course '%s' needs a start and a finish, got %d corners", name, len(order))
	}
	for _, corner := range order {
		m, ok := byID[corner.CompoundMarkID]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownMark, "corner %d references %d", corner.SeqID, corner.CompoundMarkID)
		}
		c.order = append(c.order, m)
	}
	if !c.order[0].IsGate() || !c.order[len(c.order)-1].IsGate() {
		return nil, errors.Errorf("course '%s' must start and finish on a line", name)
	}
	return c, nil
}

// MarkOrder returns the compound marks in sailing order, 0 is the start line
// and the last one the finish line.
func (c *Course) MarkOrder() []CompoundMark {
	return append([]CompoundMark(nil), c.order...)
}

func (c *Course) Len() int {
	return len(c.order)
}

// Mark returns the mark a boat on the given leg is sailing to.
func (c *Course) Mark(leg int) (CompoundMark, error) {
	if leg < 0 || leg >= len(c.order) {
		return CompoundMark{}, errors.Wrapf(ErrNoMark, "leg %d", leg)
	}
	return c.order[leg], nil
}

func (c *Course) NextMark(leg int) (CompoundMark, error) {
	if leg < -1 || leg+1 >= len(c.order) {
		return CompoundMark{}, errors.Wrapf(ErrNoNextMark, "leg %d", leg)
	}
	return c.order[leg+1], nil
}

func (c *Course) PreviousMark(leg int) (CompoundMark, error) {
	if leg < 1 || leg > len(c.order) {
		return CompoundMark{}, errors.Wrapf(ErrNoPreviousMark, "leg %d", leg)
	}
	return c.order[leg-1], nil
}

func (c *Course) IsStart(leg int) bool {
	return leg == 0
}

// IsLastMark reports whether the leg ends on the finish line.
func (c *Course) IsLastMark(leg int) bool {
	return leg == len(c.order)-1
}

// Corner returns the sequence entry of a leg.
func (c *Course) Corner(leg int) (Corner, error) {
	if leg < 0 || leg >= len(c.Order) {
		return Corner{}, errors.Wrapf(ErrNoMark, "leg %d", leg)
	}
	return c.Order[leg], nil
}

// AllMarks returns every distinct single mark of the course.
func (c *Course) AllMarks() []Mark {
	var marks []Mark
	for _, cm := range c.Marks {
		marks = append(marks, cm.Marks...)
	}
	return marks
}

// WithTokens returns a copy of the course carrying the given tokens.
func (c *Course) WithTokens(tokens []Token) *Course {
	cp := *c
	cp.Tokens = append([]Token(nil), tokens...)
	return &cp
}
