package emg

// level maps a digital comparator output to a channel value.
func level(v int) float64 {
	if v != 0 {
		return 1.0
	}
	return 0.0
}
