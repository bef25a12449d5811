//go:build linux && !baremetal

package hx711

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Lines drives the HX711 through the Linux GPIO character device.
type Lines struct {
	chip  *gpiocdev.Chip
	clock *gpiocdev.Line
	data  *gpiocdev.Line
}

var _ Pins = (*Lines)(nil)

// NewLines requests the clock and data lines on chip (e.g. "gpiochip0").
func NewLines(chip string, clockOffset, dataOffset int) (*Lines, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("pseudobend"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	clk, err := c.RequestLine(clockOffset, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request clock line %d: %w", clockOffset, err)
	}

	data, err := c.RequestLine(dataOffset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		clk.Close()
		c.Close()
		return nil, fmt.Errorf("request data line %d: %w", dataOffset, err)
	}

	return &Lines{chip: c, clock: clk, data: data}, nil
}

// SetClock drives the clock line.
func (l *Lines) SetClock(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return l.clock.SetValue(v)
}

// Data samples the data line.
func (l *Lines) Data() (bool, error) {
	v, err := l.data.Value()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// Close releases the lines. The clock is left low so the chip stays powered.
func (l *Lines) Close() error {
	var errs []error
	if l.clock != nil {
		if err := l.clock.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release clock line: %w", err))
		}
		if err := l.clock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close clock line: %w", err))
		}
	}
	if l.data != nil {
		if err := l.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data line: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
