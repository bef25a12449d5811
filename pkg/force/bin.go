package force

import "github.com/chewxy/math32"

// DefaultBins is the default number of bins a calibrated range is split into.
const DefaultBins uint16 = 80

// Bin maps a filtered value to a bin index in [0, n].
//
// The value is clamped to [min, max], mapped linearly onto [0, n] and
// rounded to the nearest integer. A degenerate range (min >= max) always
// yields bin 0.
func Bin(v, min, max float32, n uint16) uint16 {
	if min >= max || math32.IsNaN(v) {
		return 0
	}
	if v < min {
		v = min
	} else if v > max {
		v = max
	}

	b := math32.Round((v - min) * float32(n) / (max - min))
	if b <= 0 {
		return 0
	}
	if b >= float32(n) {
		return n
	}
	return uint16(b)
}

// BinFor maps v with the calibrated range of p.
func BinFor(v float32, p Params, n uint16) uint16 {
	return Bin(v, float32(p.Min), float32(p.Max), n)
}
