package latlon

import "math"

func initialBearingTo(from, to LatLon) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)

	Δλ := toRadians(to.Lon - from.Lon)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	y := math.Sin(Δλ) * math.Cos(φ2)
	θ := math.Atan2(y, x)

	b := toDegrees(θ)

	return Wrap360(b)
}

// DistanceTo returns the great circle distance in metres.
func DistanceTo(from, to LatLon) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δφ := φ2 - φ1

	Δλ := toRadians(to.Lon - from.Lon)

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	d := R * δ

	return d
}

// BearingTo returns the initial bearing in degrees, 0 being north.
func BearingTo(from, to LatLon) float64 {
	return initialBearingTo(from, to)
}

func DistanceAndBearingTo(from, to LatLon) (float64, float64) {
	return DistanceTo(from, to), initialBearingTo(from, to)
}

// Destination returns the point reached when travelling distance metres
// from start along the given initial bearing.
func Destination(from LatLon, bearing float64, distance float64) LatLon {
	φ1 := toRadians(from.Lat)
	λ1 := toRadians(from.Lon)
	θ := toRadians(bearing)

	δ := distance / R

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))

	lon := toDegrees(λ2)
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}

	return LatLon{Lat: toDegrees(φ2), Lon: lon}
}

// Midpoint returns the point halfway along the great circle from a to b.
func Midpoint(a, b LatLon) LatLon {
	d, brg := DistanceAndBearingTo(a, b)
	return Destination(a, brg, d/2)
}
