package polar

import (
	_ "embed"
	"encoding/json"
	"io/ioutil"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed acc_polars.json
var defaultPolars []byte

// Table holds boat speeds in knots indexed by true wind angle then true wind
// speed. Both axes are sorted ascending, twa within [0,180], tws in knots.
type Table struct {
	Label string      `json:"label"`
	Tws   []float64   `json:"tws"`
	Twa   []float64   `json:"twa"`
	Speed [][]float64 `json:"speed"`
}

// Optimum is one angle/speed pair of the table.
type Optimum struct {
	Twa   float64
	Speed float64
}

// Default returns the polar table bundled with the server.
func Default() *Table {
	t, err := Parse(defaultPolars)
	if err != nil {
		log.WithError(err).Error("bundled polar table is invalid")
		return &Table{}
	}
	return t
}

// Load reads a polar table from a JSON file.
func Load(file string) (*Table, error) {
	log.Infof("Load polars %s", file)

	data, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read polar file '%s' failed", file)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON polar table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "decode polar table failed")
	}
	if len(t.Speed) != len(t.Twa) {
		return nil, errors.Errorf("polar table has %d speed rows for %d angles", len(t.Speed), len(t.Twa))
	}
	for i, row := range t.Speed {
		if len(row) != len(t.Tws) {
			return nil, errors.Errorf("polar row %d has %d speeds for %d wind speeds", i, len(row), len(t.Tws))
		}
	}
	return &t, nil
}

// interpolationIndex returns the two indexes surrounding value and the weight
// of the first one.
func interpolationIndex(values []float64, value float64) (int, int, float64) {
	i := 0
	for values[i] < value {
		i++
		if i == len(values) {
			return i - 1, 0, 1
		}
	}

	if i > 0 {
		return i - 1, i, (values[i] - value) / (values[i] - values[i-1])
	}

	return 0, 0, 0
}

func fold(twa float64) float64 {
	t := math.Mod(math.Abs(twa), 360)
	if t > 180 {
		t = 360 - t
	}
	return t
}

func (t *Table) empty() bool {
	return t == nil || len(t.Tws) == 0 || len(t.Twa) == 0
}

// speedAt interpolates along the tws axis for the given twa row.
func (t *Table) speedAt(row int, tws float64) float64 {
	i0, i1, f := interpolationIndex(t.Tws, tws)
	return t.Speed[row][i0]*f + t.Speed[row][i1]*(1-f)
}

// BoatSpeed returns the boat speed in knots for a true wind speed in knots
// and a true wind angle in degrees. Out of domain queries return 0.
func (t *Table) BoatSpeed(tws, twa float64) float64 {
	if t.empty() || tws < 0 || math.IsNaN(tws) || math.IsNaN(twa) || math.IsInf(twa, 0) {
		return 0
	}

	twaIndex0, twaIndex1, twaFactor := interpolationIndex(t.Twa, fold(twa))

	return t.speedAt(twaIndex0, tws)*twaFactor + t.speedAt(twaIndex1, tws)*(1-twaFactor)
}

// BestUpwind returns the table angle that maximizes velocity made good
// towards the wind.
func (t *Table) BestUpwind(tws float64) Optimum {
	return t.best(tws, func(twa float64) bool { return twa < 90 }, 1)
}

// BestDownwind returns the table angle that maximizes velocity made good
// away from the wind.
func (t *Table) BestDownwind(tws float64) Optimum {
	return t.best(tws, func(twa float64) bool { return twa > 90 }, -1)
}

func (t *Table) best(tws float64, keep func(float64) bool, sign float64) Optimum {
	var best Optimum
	if t.empty() || tws < 0 || math.IsNaN(tws) {
		return best
	}

	bestVmg := 0.0
	for i, twa := range t.Twa {
		if !keep(twa) {
			continue
		}
		bs := t.speedAt(i, tws)
		vmg := sign * bs * math.Cos(twa*math.Pi/180)
		if vmg > bestVmg {
			bestVmg = vmg
			best = Optimum{Twa: twa, Speed: bs}
		}
	}
	return best
}
