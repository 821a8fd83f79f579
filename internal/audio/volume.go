package audio

import "math"

// volumeBase is the exponent base used for effects.Volume.
const volumeBase = 2

// volumeToExponent converts a linear multiplier into the exponent expected by
// effects.Volume, so that volumeBase^exponent == volume.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -100 // Effectively silent
	}
	return math.Log2(volume)
}

// volumeToDecibels converts a linear multiplier to decibels for logging.
// 0.5 = -6dB, 0.25 = -12dB, etc.
func volumeToDecibels(volume float64) float64 {
	if volume <= 0 {
		return -100
	}
	return 20 * math.Log10(volume)
}
