package latlon

import (
	"math"
	"testing"
)

func TestBearingTo(t *testing.T) {
	p1 := LatLon{Lat: 0, Lon: 0}
	p2 := LatLon{Lat: 1, Lon: 0}
	d := BearingTo(p1, p2)
	if math.Round(d) != 0.0 {
		t.Errorf("{%f,%f}.bearingTo({%f,%f}) = %f; want 0", p1.Lat, p1.Lon, p2.Lat, p2.Lon, d)
	}

	p2 = LatLon{Lat: 0, Lon: 1}
	d = BearingTo(p1, p2)
	if math.Round(d) != 90.0 {
		t.Errorf("{%f,%f}.bearingTo({%f,%f}) = %f; want 90", p1.Lat, p1.Lon, p2.Lat, p2.Lon, d)
	}

	p2 = LatLon{Lat: -1, Lon: 0}
	d = BearingTo(p1, p2)
	if math.Round(d) != 180.0 {
		t.Errorf("{%f,%f}.bearingTo({%f,%f}) = %f; want 180", p1.Lat, p1.Lon, p2.Lat, p2.Lon, d)
	}

	p2 = LatLon{Lat: 0, Lon: -1}
	d = BearingTo(p1, p2)
	if math.Round(d) != 270.0 {
		t.Errorf("{%f,%f}.bearingTo({%f,%f}) = %f; want 270", p1.Lat, p1.Lon, p2.Lat, p2.Lon, d)
	}
}

func TestDistanceTo(t *testing.T) {
	p1 := LatLon{Lat: 0, Lon: 0}
	p2 := LatLon{Lat: 1, Lon: 0}
	d := DistanceTo(p1, p2)
	if math.Abs(d-111195) > 1 {
		t.Errorf("distanceTo = %f; want 111195", d)
	}

	d = DistanceTo(p1, p1)
	if d != 0 {
		t.Errorf("distanceTo(self) = %f; want 0", d)
	}
}

func TestDestination(t *testing.T) {
	start := LatLon{Lat: 57.67, Lon: 11.83}
	for _, brg := range []float64{0, 45, 90, 135, 180, 270, 359} {
		p := Destination(start, brg, 250)
		d, b := DistanceAndBearingTo(start, p)
		if math.Abs(d-250) > 0.01 {
			t.Errorf("distance to destination(%f) = %f; want 250", brg, d)
		}
		if math.Abs(AngleDiff(b, brg)) > 0.01 {
			t.Errorf("bearing to destination(%f) = %f; want %f", brg, b, brg)
		}
	}
}

func TestMidpoint(t *testing.T) {
	a := LatLon{Lat: 57.6675, Lon: 11.8265}
	b := LatLon{Lat: 57.6675, Lon: 11.8290}
	m := Midpoint(a, b)
	if math.Abs(DistanceTo(a, m)-DistanceTo(m, b)) > 0.01 {
		t.Errorf("midpoint %v is not equidistant", m)
	}
}

func TestWrap360(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		359:  359,
		360:  0,
		-1:   359,
		725:  5,
		-360: 0,
	}
	for in, want := range cases {
		if got := Wrap360(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("Wrap360(%f) = %f; want %f", in, got, want)
		}
	}
}

func TestAngleDiff(t *testing.T) {
	if d := AngleDiff(350, 10); d != 20 {
		t.Errorf("AngleDiff(350, 10) = %f; want 20", d)
	}
	if d := AngleDiff(10, 350); d != -20 {
		t.Errorf("AngleDiff(10, 350) = %f; want -20", d)
	}
}
