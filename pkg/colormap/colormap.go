// Package colormap maps raw color sensor measurements onto 0..255
// intensities and normalizes them. It has no dependencies so the firmware
// build shares it.
package colormap

// Max is the full scale intensity.
const Max = 255

// Frequency maps hz between the dark and bright references linearly onto
// 0..Max, truncating. A missing signal or bright <= dark yields 0.
func Frequency(hz, dark, bright float32) int {
	if hz <= 0 || bright <= dark {
		return 0
	}
	v := (hz - dark) / (bright - dark) * Max
	return int(min(max(v, 0), Max))
}

// PulseWidth maps a pulse width in µs onto 0..Max with integer arithmetic.
// A shorter pulse means more light, so bright must be below dark.
func PulseWidth(pw, dark, bright float32) int {
	if pw <= 0 || bright >= dark {
		return 0
	}
	p, d, b := int64(pw), int64(dark), int64(bright)
	if b == d {
		return 0
	}
	v := (p - d) * Max / (b - d)
	return int(min(max(v, 0), Max))
}

// Normalize scales intensities to fractions of their sum. A zero sum yields
// all zeros.
func Normalize(r, g, b int) (float32, float32, float32) {
	sum := float32(r + g + b)
	if sum <= 0 {
		return 0, 0, 0
	}
	return float32(r) / sum, float32(g) / sum, float32(b) / sum
}
