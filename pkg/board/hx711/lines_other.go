//go:build !linux || baremetal

package hx711

import "errors"

// Lines is not available on non-Linux platforms.
type Lines struct{}

// NewLines returns an error on non-Linux platforms.
func NewLines(chip string, clockOffset, dataOffset int) (*Lines, error) {
	return nil, errors.New("hx711: gpio lines require Linux")
}

// SetClock is not implemented on non-Linux platforms.
func (l *Lines) SetClock(high bool) error {
	return errors.New("hx711: not supported")
}

// Data is not implemented on non-Linux platforms.
func (l *Lines) Data() (bool, error) {
	return false, errors.New("hx711: not supported")
}

// Close is a no-op on non-Linux platforms.
func (l *Lines) Close() error {
	return nil
}
