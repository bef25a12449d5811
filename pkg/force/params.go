package force

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Built-in calibration defaults, used whenever stored values are invalid.
const (
	DefaultScale float32 = 1.0
	DefaultMin   uint32  = 0
	DefaultMax   uint32  = 10000
)

var (
	// ErrInvalidScale reports a zero or NaN scale.
	ErrInvalidScale = errors.New("invalid scale")
	// ErrInvalidRange reports a range with min >= max.
	ErrInvalidRange = errors.New("invalid range")
)

// Params holds the calibration of one channel.
type Params struct {
	Scale  float32 // raw counts per unit (grams)
	Offset int32   // tare baseline in raw counts
	Min    uint32  // lower bound of the calibrated range, in units
	Max    uint32  // upper bound of the calibrated range, in units
}

// DefaultParams returns the built-in safe calibration.
func DefaultParams() Params {
	return Params{
		Scale: DefaultScale,
		Min:   DefaultMin,
		Max:   DefaultMax,
	}
}

// ValidScale reports whether s can be used to convert counts to units.
func ValidScale(s float32) bool {
	return s != 0 && !math32.IsNaN(s) && !math32.IsInf(s, 0)
}

// ValidRange reports whether min < max.
func (p Params) ValidRange() bool {
	return p.Min < p.Max
}

// Span returns Max-Min, or 0 for a degenerate range.
func (p Params) Span() uint32 {
	if !p.ValidRange() {
		return 0
	}
	return p.Max - p.Min
}

// Sanitize replaces invalid fields with the built-in defaults. The
// returned error lists what was replaced; it is a diagnostic, the params
// are usable either way.
func (p *Params) Sanitize() error {
	var errs []error
	if !ValidScale(p.Scale) {
		errs = append(errs, fmt.Errorf("%w: %v, using %v", ErrInvalidScale, p.Scale, DefaultScale))
		p.Scale = DefaultScale
	}
	if !p.ValidRange() {
		errs = append(errs, fmt.Errorf("%w: [%d, %d], using [%d, %d]", ErrInvalidRange, p.Min, p.Max, DefaultMin, DefaultMax))
		p.Min = DefaultMin
		p.Max = DefaultMax
	}
	return errors.Join(errs...)
}

// UnitsToStored converts a unit reading to the unsigned stored form.
// Negative readings (below the tare point) become 0.
func UnitsToStored(u float32) uint32 {
	if math32.IsNaN(u) || u <= 0 {
		return 0
	}
	if u >= float32(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(u)
}
