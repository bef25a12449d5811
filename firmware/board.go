//go:build tinygo

package main

import (
	"machine"

	"github.com/itohio/pseudobend/pkg/board/hx711"
	"github.com/itohio/pseudobend/pkg/pulse"
)

// hxPins drives one HX711 from two GPIOs.
type hxPins struct {
	clock machine.Pin
	data  machine.Pin
}

var _ hx711.Pins = hxPins{}

func newHXPins(clock, data machine.Pin) hxPins {
	clock.Configure(machine.PinConfig{Mode: machine.PinOutput})
	clock.Low()
	data.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return hxPins{clock: clock, data: data}
}

func (p hxPins) SetClock(high bool) error {
	p.clock.Set(high)
	return nil
}

func (p hxPins) Data() (bool, error) {
	return p.data.Get(), nil
}

// pwmCtrl is the part of a TinyGo PWM peripheral the actuator needs.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmActuator maps 8-bit duties onto one PWM channel.
type pwmActuator struct {
	ctrl pwmCtrl
	ch   uint8
}

var _ pulse.Actuator = (*pwmActuator)(nil)

func newPWMActuator(ctrl pwmCtrl, pin machine.Pin) (*pwmActuator, error) {
	if err := ctrl.Configure(machine.PWMConfig{Period: 1e9 / PWM_CARRIER_HZ}); err != nil {
		return nil, err
	}
	ch, err := ctrl.Channel(pin)
	if err != nil {
		return nil, err
	}
	a := &pwmActuator{ctrl: ctrl, ch: ch}
	a.SetDuty(0)
	return a, nil
}

func (a *pwmActuator) SetDuty(duty uint8) error {
	a.ctrl.Set(a.ch, uint32(uint64(a.ctrl.Top())*uint64(duty)/pulse.MaxDuty))
	return nil
}
