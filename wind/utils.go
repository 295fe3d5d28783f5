package wind

// Twa returns the true wind angle in (-180,180] seen from a boat sailing
// heading, positive when the wind comes over starboard.
func Twa(heading, wind float64) float64 {
	twa := wind - heading
	for twa <= -180 {
		twa += 360
	}
	for twa > 180 {
		twa -= 360
	}

	return twa
}

// Heading is the inverse of Twa.
func Heading(twa, wind float64) float64 {
	heading := wind - twa
	for heading < 0 {
		heading += 360
	}
	for heading >= 360 {
		heading -= 360
	}

	return heading
}

// Normalized returns heading relative to the wind direction folded into
// [0,360): 0 is head to wind, 180 is dead downwind, below 180 the wind
// comes over port.
func Normalized(heading, wind float64) float64 {
	n := heading - wind
	for n < 0 {
		n += 360
	}
	for n >= 360 {
		n -= 360
	}

	return n
}
