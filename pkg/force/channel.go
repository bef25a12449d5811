// Package force turns raw load cell readings into filtered values and bins.
package force

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/pseudobend/pkg/clock"
)

// DefaultFilterWeight is the weight of the newest reading in the moving average.
const DefaultFilterWeight float32 = 0.9

// DefaultTareSamples is the number of raw readings averaged by a tare.
const DefaultTareSamples = 10

const (
	readyPoll    = time.Millisecond
	readyTimeout = time.Second
)

// ErrNotReady is returned when the sensor does not become ready in time.
var ErrNotReady = errors.New("sensor not ready")

// Sensor is a raw force sensor such as an HX711 load cell amplifier.
type Sensor interface {
	// IsReady reports, without blocking, whether a conversion is available.
	IsReady() bool
	// ReadRaw returns the latest conversion in raw counts.
	ReadRaw() (int32, error)
}

// Side identifies one of the two channels.
type Side int

const (
	Left Side = iota
	Right
)

// Sides lists both channels in evaluation order.
var Sides = [2]Side{Left, Right}

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	return 1 - s
}

// ParseSide parses the target character of a command ('l' or 'r').
func ParseSide(c byte) (Side, bool) {
	switch c {
	case 'l', 'L':
		return Left, true
	case 'r', 'R':
		return Right, true
	}
	return Left, false
}

// Channel owns one sensor, its calibration and its filtered signal.
type Channel struct {
	side     Side
	sensor   Sensor
	params   Params
	weight   float32
	bins     uint16
	filtered float32
	bin      uint16
}

// NewChannel creates a channel. Invalid params are replaced by defaults,
// an out-of-range weight falls back to DefaultFilterWeight and zero bins
// to DefaultBins.
func NewChannel(side Side, sensor Sensor, params Params, weight float32, bins uint16) *Channel {
	if weight <= 0 || weight > 1 {
		weight = DefaultFilterWeight
	}
	if bins == 0 {
		bins = DefaultBins
	}
	_ = params.Sanitize()

	return &Channel{
		side:   side,
		sensor: sensor,
		params: params,
		weight: weight,
		bins:   bins,
	}
}

// Side returns which channel this is.
func (c *Channel) Side() Side { return c.side }

// Params returns the current calibration.
func (c *Channel) Params() Params { return c.params }

// SetParams replaces the calibration and re-derives the bin.
func (c *Channel) SetParams(p Params) {
	c.params = p
	c.bin = BinFor(c.filtered, c.params, c.bins)
}

// Offset returns the tare baseline in raw counts.
func (c *Channel) Offset() int32 { return c.params.Offset }

// Filtered returns the smoothed value in units.
func (c *Channel) Filtered() float32 { return c.filtered }

// Bin returns the current bin.
func (c *Channel) Bin() uint16 { return c.bin }

// Bins returns the configured number of bins.
func (c *Channel) Bins() uint16 { return c.bins }

// SetBins changes the number of bins and re-derives the current bin.
func (c *Channel) SetBins(n uint16) {
	if n == 0 {
		return
	}
	c.bins = n
	c.bin = BinFor(c.filtered, c.params, c.bins)
}

// Units converts a raw reading to units using the tare offset and scale.
func (c *Channel) Units(raw int32) float32 {
	return float32(raw-c.params.Offset) / c.params.Scale
}

// Poll reads the sensor if a conversion is ready and feeds it to Update.
// It reports whether a new reading was consumed.
func (c *Channel) Poll() (bool, error) {
	if !c.sensor.IsReady() {
		return false, nil
	}
	raw, err := c.sensor.ReadRaw()
	if err != nil {
		return false, fmt.Errorf("read %s sensor: %w", c.side, err)
	}
	c.Update(raw)
	return true, nil
}

// Update feeds one raw reading through clamp, moving average and binning,
// and returns the new filtered value.
func (c *Channel) Update(raw int32) float32 {
	v := c.Units(raw)
	if c.params.ValidRange() {
		lo, hi := float32(c.params.Min), float32(c.params.Max)
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
	}

	c.filtered = (1-c.weight)*c.filtered + c.weight*v
	c.bin = BinFor(c.filtered, c.params, c.bins)
	return c.filtered
}

// ReadAverage blocks until n readings have been collected and returns
// their mean in raw counts.
func (c *Channel) ReadAverage(clk clock.Clock, n int) (float32, error) {
	if n <= 0 {
		n = 1
	}
	var sum int64
	for i := 0; i < n; i++ {
		if err := c.waitReady(clk); err != nil {
			return 0, err
		}
		raw, err := c.sensor.ReadRaw()
		if err != nil {
			return 0, fmt.Errorf("read %s sensor: %w", c.side, err)
		}
		sum += int64(raw)
	}
	return float32(float64(sum) / float64(n)), nil
}

// ReadUnits averages n readings and converts the mean to units.
func (c *Channel) ReadUnits(clk clock.Clock, n int) (float32, error) {
	avg, err := c.ReadAverage(clk, n)
	if err != nil {
		return 0, err
	}
	return (avg - float32(c.params.Offset)) / c.params.Scale, nil
}

// Tare sets the offset to the mean of n raw readings. Scale and range are
// left untouched.
func (c *Channel) Tare(clk clock.Clock, n int) error {
	avg, err := c.ReadAverage(clk, n)
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	c.params.Offset = int32(avg)
	return nil
}

func (c *Channel) waitReady(clk clock.Clock) error {
	for waited := time.Duration(0); !c.sensor.IsReady(); waited += readyPoll {
		if waited >= readyTimeout {
			return fmt.Errorf("%s: %w", c.side, ErrNotReady)
		}
		clk.Sleep(readyPoll)
	}
	return nil
}
