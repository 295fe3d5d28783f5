package wind

import (
	"math"
	"os"

	"github.com/nilsmagnus/grib/griblib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/latlon"
)

// Grid is the 10m U/V wind of a GRIB2 forecast.
type Grid struct {
	File string
	Lat0 float64
	Lon0 float64
	ΔLat float64
	ΔLon float64
	NLat uint32
	NLon uint32
	U    [][]float64
	V    [][]float64
}

func (g Grid) buildGrid(data []float64) [][]float64 {

	isContinuous := math.Floor(float64(g.NLon)*g.ΔLon) >= 360

	nLon := g.NLon
	if isContinuous {
		nLon++
	}

	grid := make([][]float64, g.NLat)

	p := 0
	for j := uint32(0); j < g.NLat; j++ {
		grid[j] = make([]float64, nLon)
		for i := uint32(0); i < g.NLon && p < len(data); i++ {
			grid[j][i] = data[p]
			p++
		}
		if isContinuous {
			grid[j][g.NLon] = grid[j][0]
		}
	}
	return grid
}

// ReadGrib loads the 10m above ground U and V components of a GRIB2 file.
func ReadGrib(file string) (*Grid, error) {
	g := &Grid{File: file}
	gribfile, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "open grib file '%s' failed", file)
	}
	defer gribfile.Close()

	messages, err := griblib.ReadMessages(gribfile)
	if err != nil {
		return nil, errors.Wrapf(err, "read grib file '%s' failed", file)
	}
	for _, message := range messages {
		if message.Section0.Discipline == uint8(0) && message.Section4.ProductDefinitionTemplate.ParameterCategory == uint8(2) && message.Section4.ProductDefinitionTemplate.FirstSurface.Type == 103 && message.Section4.ProductDefinitionTemplate.FirstSurface.Value == 10 {
			grid0, ok := message.Section3.Definition.(*griblib.Grid0)
			if !ok {
				continue
			}
			g.Lat0 = float64(grid0.La1 / 1e6)
			g.Lon0 = float64(grid0.Lo1 / 1e6)
			g.ΔLat = float64(grid0.Di / 1e6)
			g.ΔLon = float64(grid0.Dj / 1e6)
			g.NLat = grid0.Nj
			g.NLon = grid0.Ni
			if message.Section4.ProductDefinitionTemplate.ParameterNumber == 2 {
				g.U = g.buildGrid(message.Section7.Data)
			} else if message.Section4.ProductDefinitionTemplate.ParameterNumber == 3 {
				g.V = g.buildGrid(message.Section7.Data)
			}
		}
	}
	if g.U == nil || g.V == nil {
		return nil, errors.Errorf("grib file '%s' has no 10m wind", file)
	}
	return g, nil
}

func floorModf(a float64, n float64) float64 {
	return a - n*math.Floor(a/n)
}

func bilinearInterpolate(x float64, y float64, g00 []float64, g10 []float64, g01 []float64, g11 []float64) (float64, float64) {

	rx := (1 - x)
	ry := (1 - y)

	a := rx * ry
	b := x * ry
	c := rx * y
	d := x * y

	u := g00[0]*a + g10[0]*b + g01[0]*c + g11[0]*d
	v := g00[1]*a + g10[1]*b + g01[1]*c + g11[1]*d

	return u, v
}

func vectorToDegrees(u float64, v float64, d float64) float64 {

	velocityDir := math.Atan2(u/d, v/d)
	velocityDirToDegrees := velocityDir*180/math.Pi + 180
	return velocityDirToDegrees
}

// At interpolates the wind at a position, returning where it blows from in
// degrees and its speed in m/s.
func (g Grid) At(pos latlon.LatLon) (float64, float64, error) {
	if g.ΔLat == 0 || g.ΔLon == 0 {
		return 0, 0, errors.New("grib grid has no resolution")
	}

	i := math.Abs((pos.Lat - g.Lat0) / g.ΔLat)
	j := floorModf(pos.Lon-g.Lon0, 360.0) / g.ΔLon

	fi := uint32(i)
	fj := uint32(j)

	if int(fi)+1 >= len(g.U) || int(fi)+1 >= len(g.V) || int(fj)+1 >= len(g.U[fi]) {
		return 0, 0, errors.Errorf("position %v is outside the grib grid", pos)
	}

	u00 := g.U[fi][fj]
	v00 := g.V[fi][fj]

	u01 := g.U[fi+1][fj]
	v01 := g.V[fi+1][fj]

	u10 := g.U[fi][fj+1]
	v10 := g.V[fi][fj+1]

	u11 := g.U[fi+1][fj+1]
	v11 := g.V[fi+1][fj+1]

	u, v := bilinearInterpolate(j-float64(fj), i-float64(fi), []float64{u00, v00}, []float64{u10, v10}, []float64{u01, v01}, []float64{u11, v11})

	d := math.Sqrt(u*u + v*v)
	if d == 0 {
		return 0, 0, nil
	}
	return vectorToDegrees(u, v, d), d, nil
}

// FromGrib seeds the course wind from a GRIB2 forecast at the given
// position, clamped into the band.
func FromGrib(file string, at latlon.LatLon, b Band) (Wind, error) {
	g, err := ReadGrib(file)
	if err != nil {
		return Wind{}, err
	}
	dir, speed, err := g.At(at)
	if err != nil {
		return Wind{}, errors.Wrap(err, "interpolate grib wind failed")
	}
	w := Wind{Direction: int(math.Round(dir)), Speed: int(math.Round(speed * 1000))}.Clamp(b)
	log.WithFields(log.Fields{"file": file, "wind": w.String()}).Info("Initial wind from grib")
	return w, nil
}
