package latlon

// The planar tests below work on (lon, lat) as (x, y). Course scale is a few
// kilometres, well inside the range where the projection keeps orientation.

const epsilon = 1e-12

func cross(a, b, p LatLon) float64 {
	return (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
}

// Side reports on which side of the directed line a->b the point p lies:
// +1 on the left (counter-clockwise), -1 on the right (clockwise), 0 on the line.
func Side(a, b, p LatLon) int {
	c := cross(a, b, p)
	switch {
	case c > epsilon:
		return 1
	case c < -epsilon:
		return -1
	}
	return 0
}

// IsClockwise reports whether a, b, p make a clockwise turn.
func IsClockwise(a, b, p LatLon) bool {
	return Side(a, b, p) < 0
}

func onSegment(a, b, p LatLon) bool {
	return min(a.Lon, b.Lon)-epsilon <= p.Lon && p.Lon <= max(a.Lon, b.Lon)+epsilon &&
		min(a.Lat, b.Lat)-epsilon <= p.Lat && p.Lat <= max(a.Lat, b.Lat)+epsilon
}

// SegmentsCross reports whether the segment p1-p2 intersects the segment q1-q2,
// touching end points included.
func SegmentsCross(p1, p2, q1, q2 LatLon) bool {
	d1 := Side(q1, q2, p1)
	d2 := Side(q1, q2, p2)
	d3 := Side(p1, p2, q1)
	d4 := Side(p1, p2, q2)

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}

	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

// InTriangle reports whether p lies inside or on the edge of triangle abc.
func InTriangle(p, a, b, c LatLon) bool {
	s1 := Side(a, b, p)
	s2 := Side(b, c, p)
	s3 := Side(c, a, p)

	hasNeg := s1 < 0 || s2 < 0 || s3 < 0
	hasPos := s1 > 0 || s2 > 0 || s3 > 0

	return !(hasNeg && hasPos)
}
