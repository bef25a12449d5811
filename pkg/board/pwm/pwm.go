// Package pwm drives vibrotactile actuators from a hardware PWM pin on a
// Linux single board computer.
package pwm

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/itohio/pseudobend/pkg/pulse"
)

// DefaultCarrier is the PWM carrier, far above the audible modulation.
const DefaultCarrier = 100 * physic.KiloHertz

// Output is the part of gpio.PinOut the actuator uses.
type Output interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// Actuator maps 8-bit duties onto a PWM output.
type Actuator struct {
	pin     Output
	carrier physic.Frequency
}

var _ pulse.Actuator = (*Actuator)(nil)

// New creates an Actuator on pin. A zero carrier uses DefaultCarrier.
func New(pin Output, carrier physic.Frequency) *Actuator {
	if carrier <= 0 {
		carrier = DefaultCarrier
	}
	return &Actuator{pin: pin, carrier: carrier}
}

var initOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Open initializes the periph host drivers once and opens the pin by name
// (e.g. "GPIO18" or "PWM0").
func Open(name string, carrier physic.Frequency) (*Actuator, error) {
	if err := initOnce(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pwm pin %q not found", name)
	}
	a := New(p, carrier)
	if err := a.SetDuty(0); err != nil {
		return nil, fmt.Errorf("pwm pin %q: %w", name, err)
	}
	return a, nil
}

// SetDuty sets the output duty, 0 drives the pin low.
func (a *Actuator) SetDuty(duty uint8) error {
	if duty == 0 {
		return a.pin.Out(gpio.Low)
	}
	return a.pin.PWM(Duty(duty), a.carrier)
}

// Duty converts an 8-bit duty to the periph duty scale.
func Duty(d uint8) gpio.Duty {
	return gpio.Duty(int64(d) * int64(gpio.DutyMax) / pulse.MaxDuty)
}
