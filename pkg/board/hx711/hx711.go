// Package hx711 reads an HX711 24-bit load cell amplifier by bit-banging
// its two-wire interface.
package hx711

import (
	"fmt"

	"github.com/itohio/pseudobend/pkg/force"
)

// Pins is the two-wire interface: a clock output and a data input.
type Pins interface {
	SetClock(high bool) error
	Data() (bool, error)
}

// Gain selects the input channel and gain of the next conversion. The
// value is the number of extra clock pulses after the 24 data bits.
type Gain int

const (
	GainA128 Gain = 1
	GainB32  Gain = 2
	GainA64  Gain = 3
)

// Device is one HX711.
type Device struct {
	pins Pins
	gain Gain
}

var _ force.Sensor = (*Device)(nil)

// New creates a Device on pins using channel A with gain 128.
func New(pins Pins) *Device {
	return &Device{pins: pins, gain: GainA128}
}

// SetGain selects the gain used from the conversion after next.
func (d *Device) SetGain(g Gain) error {
	if g < GainA128 || g > GainA64 {
		return fmt.Errorf("hx711: invalid gain %d", g)
	}
	d.gain = g
	return nil
}

// IsReady reports whether a conversion is waiting: the chip pulls data low.
func (d *Device) IsReady() bool {
	high, err := d.pins.Data()
	return err == nil && !high
}

// ReadRaw clocks out one conversion, MSB first, and sign-extends it.
// Callers check IsReady first.
func (d *Device) ReadRaw() (int32, error) {
	var v uint32
	for i := 0; i < 24; i++ {
		bit, err := d.pulse()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	for i := 0; i < int(d.gain); i++ {
		if _, err := d.pulse(); err != nil {
			return 0, err
		}
	}
	return signExtend24(v), nil
}

// PowerDown holds the clock high; the chip sleeps after 60us.
func (d *Device) PowerDown() error {
	if err := d.pins.SetClock(false); err != nil {
		return fmt.Errorf("hx711: power down: %w", err)
	}
	if err := d.pins.SetClock(true); err != nil {
		return fmt.Errorf("hx711: power down: %w", err)
	}
	return nil
}

// PowerUp releases the clock. The chip resets to channel A, gain 128.
func (d *Device) PowerUp() error {
	if err := d.pins.SetClock(false); err != nil {
		return fmt.Errorf("hx711: power up: %w", err)
	}
	d.gain = GainA128
	return nil
}

func (d *Device) pulse() (bool, error) {
	if err := d.pins.SetClock(true); err != nil {
		return false, fmt.Errorf("hx711: clock high: %w", err)
	}
	bit, err := d.pins.Data()
	if err != nil {
		return false, fmt.Errorf("hx711: read data: %w", err)
	}
	if err := d.pins.SetClock(false); err != nil {
		return false, fmt.Errorf("hx711: clock low: %w", err)
	}
	return bit, nil
}

func signExtend24(v uint32) int32 {
	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}
