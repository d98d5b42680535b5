package teleop

// MapValue linearly remaps value from [inMin, inMax] to [outMin, outMax].
// Values outside the input range are extrapolated, not clamped.
func MapValue(value, inMin, inMax, outMin, outMax float32) (float32, error) {
	if inMin == inMax {
		return 0, &MappingError{Value: value, InMin: inMin, InMax: inMax}
	}
	return outMin + (value-inMin)*(outMax-outMin)/(inMax-inMin), nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
