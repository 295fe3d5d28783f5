package wind

import (
	"fmt"
)

// MsToKnots converts metres per second to knots.
const MsToKnots = 1.9438444924406

// Default band of the wind speed, in mm/s.
const (
	MinSpeed = 8000
	MaxSpeed = 12000
)

// Wind is the course wind. Direction is where the wind blows from, in
// degrees. Speed is fixed point, in millimetres per second.
type Wind struct {
	Direction int `json:"direction"`
	Speed     int `json:"speed"`
}

// Band bounds the wind speed.
type Band struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultBand returns the 8-12 m/s band.
func DefaultBand() Band {
	return Band{Min: MinSpeed, Max: MaxSpeed}
}

// Rand is the random source used by the drift.
type Rand interface {
	Intn(n int) int
}

func (w Wind) String() string {
	return fmt.Sprintf("%d° %.1f kt", w.Direction, w.Knots())
}

// MetresPerSecond returns the wind speed in m/s.
func (w Wind) MetresPerSecond() float64 {
	return float64(w.Speed) / 1000
}

// Knots returns the wind speed in knots.
func (w Wind) Knots() float64 {
	return w.MetresPerSecond() * MsToKnots
}

// Clamp brings the wind back into the band and the direction into [0,360).
func (w Wind) Clamp(b Band) Wind {
	w.Direction = floorMod(w.Direction, 360)
	if w.Speed < b.Min {
		w.Speed = b.Min
	}
	if w.Speed > b.Max {
		w.Speed = b.Max
	}
	return w
}

// Drift applies one random walk step: the direction moves by up to 3
// degrees and the speed by 50 to 69 mm/s, both the same way. A speed that
// leaves the band gets a corrective jump of up to 1000 mm/s back inside.
func (w Wind) Drift(r Rand, b Band) Wind {
	direction := w.Direction
	speed := w.Speed

	if r.Intn(2) == 0 {
		direction += r.Intn(4)
		speed += r.Intn(20) + 50
	} else {
		direction -= r.Intn(4)
		speed -= r.Intn(20) + 50
	}

	if speed > b.Max {
		speed -= r.Intn(1000)
	}
	if speed < b.Min {
		speed += r.Intn(1000)
	}

	return Wind{Direction: direction, Speed: speed}.Clamp(b)
}

func floorMod(a, n int) int {
	return ((a % n) + n) % n
}
