package latlon

import "testing"

func TestSide(t *testing.T) {
	a := LatLon{Lat: 0, Lon: 0}
	b := LatLon{Lat: 0, Lon: 1}

	if s := Side(a, b, LatLon{Lat: 1, Lon: 0.5}); s != 1 {
		t.Errorf("Side(north of eastward line) = %d; want 1", s)
	}
	if s := Side(a, b, LatLon{Lat: -1, Lon: 0.5}); s != -1 {
		t.Errorf("Side(south of eastward line) = %d; want -1", s)
	}
	if s := Side(a, b, LatLon{Lat: 0, Lon: 2}); s != 0 {
		t.Errorf("Side(on line) = %d; want 0", s)
	}
	if !IsClockwise(a, b, LatLon{Lat: -1, Lon: 0.5}) {
		t.Errorf("IsClockwise(south of eastward line) = false; want true")
	}
}

func TestSegmentsCross(t *testing.T) {
	q1 := LatLon{Lat: 0, Lon: 0}
	q2 := LatLon{Lat: 0, Lon: 1}

	tests := []struct {
		name   string
		p1, p2 LatLon
		want   bool
	}{
		{"through", LatLon{Lat: -1, Lon: 0.5}, LatLon{Lat: 1, Lon: 0.5}, true},
		{"short", LatLon{Lat: -1, Lon: 0.5}, LatLon{Lat: -0.5, Lon: 0.5}, false},
		{"beside", LatLon{Lat: -1, Lon: 2}, LatLon{Lat: 1, Lon: 2}, false},
		{"touching", LatLon{Lat: -1, Lon: 0.5}, LatLon{Lat: 0, Lon: 0.5}, true},
		{"parallel", LatLon{Lat: 1, Lon: 0}, LatLon{Lat: 1, Lon: 1}, false},
	}
	for _, tt := range tests {
		if got := SegmentsCross(tt.p1, tt.p2, q1, q2); got != tt.want {
			t.Errorf("SegmentsCross(%s) = %t; want %t", tt.name, got, tt.want)
		}
	}
}

func TestInTriangle(t *testing.T) {
	a := LatLon{Lat: 0, Lon: 0}
	b := LatLon{Lat: 0, Lon: 2}
	c := LatLon{Lat: 2, Lon: 1}

	if !InTriangle(LatLon{Lat: 0.5, Lon: 1}, a, b, c) {
		t.Errorf("InTriangle(inside) = false; want true")
	}
	if !InTriangle(LatLon{Lat: 0.5, Lon: 1}, c, b, a) {
		t.Errorf("InTriangle(inside, reversed winding) = false; want true")
	}
	if InTriangle(LatLon{Lat: 3, Lon: 1}, a, b, c) {
		t.Errorf("InTriangle(outside) = true; want false")
	}
}
