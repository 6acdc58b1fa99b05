package sampling

// tuneScale nudges a random-walk step size toward an acceptance rate in the
// 0.2..0.5 band, moving aggressively when the rate is far outside it.
func tuneScale(scale, rate float64) float64 {
	switch {
	case rate < 0.001:
		return scale * 0.1
	case rate < 0.05:
		return scale * 0.5
	case rate < 0.2:
		return scale * 0.9
	case rate > 0.95:
		return scale * 10
	case rate > 0.75:
		return scale * 2
	case rate > 0.5:
		return scale * 1.1
	}
	return scale
}
