package latlon

import "math"

const π = math.Pi

// R is the mean earth radius in metres.
const R = 6371e3

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func toRadians(a float64) float64 {
	return a * π / 180.0
}

func toDegrees(a float64) float64 {
	return a * 180.0 / π
}

// Wrap360 folds an angle in degrees into [0,360).
func Wrap360(d float64) float64 {
	if 0.0 <= d && d < 360.0 {
		return d
	}
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	if d >= 360.0 {
		d = 0
	}
	return d
}

// AngleDiff returns the signed smallest rotation from a to b, in (-180,180].
func AngleDiff(a, b float64) float64 {
	d := Wrap360(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}
