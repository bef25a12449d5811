// Package sim provides simulated load cells and actuators for host
// development and tests.
package sim

import (
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/pulse"
)

// Sensor is a simulated load cell amplifier.
type Sensor struct {
	mu       sync.Mutex
	raw      int32
	fn       func() int32
	notReady bool
	reads    int
}

var _ force.Sensor = (*Sensor)(nil)

// NewSensor creates a sensor that always reads raw.
func NewSensor(raw int32) *Sensor {
	return &Sensor{raw: raw}
}

// NewFuncSensor creates a sensor whose readings come from fn.
func NewFuncSensor(fn func() int32) *Sensor {
	return &Sensor{fn: fn}
}

// Set changes the constant reading.
func (s *Sensor) Set(raw int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	s.fn = nil
}

// SetReady controls IsReady.
func (s *Sensor) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notReady = !ready
}

// Reads returns how many readings were taken.
func (s *Sensor) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// IsReady reports whether a reading is available.
func (s *Sensor) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.notReady
}

// ReadRaw returns the next reading.
func (s *Sensor) ReadRaw() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fn != nil {
		return s.fn(), nil
	}
	return s.raw, nil
}

// Press returns a reading generator that simulates a hand repeatedly
// pressing the handle: a raised cosine from offset up to offset+peak and
// back once per period.
func Press(clk clock.Clock, period time.Duration, offset, peak int32) func() int32 {
	us := float32(period.Microseconds())
	if us <= 0 {
		us = 1
	}
	return func() int32 {
		phase := math32.Mod(float32(clk.Micros()), us) / us
		v := 0.5 - 0.5*math32.Cos(2*math32.Pi*phase)
		return offset + int32(v*float32(peak))
	}
}

// Actuator records every duty written to it.
type Actuator struct {
	mu     sync.Mutex
	duties []uint8
	err    error
}

var _ pulse.Actuator = (*Actuator)(nil)

// NewActuator creates a recording actuator.
func NewActuator() *Actuator {
	return &Actuator{}
}

// SetDuty records duty. The configured error, if any, is returned after
// recording.
func (a *Actuator) SetDuty(duty uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.duties = append(a.duties, duty)
	return a.err
}

// Fail makes subsequent writes return err.
func (a *Actuator) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Duty returns the last written duty, 0 before the first write.
func (a *Actuator) Duty() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.duties) == 0 {
		return 0
	}
	return a.duties[len(a.duties)-1]
}

// Duties returns a copy of every written duty.
func (a *Actuator) Duties() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint8, len(a.duties))
	copy(out, a.duties)
	return out
}

// Reset forgets the recorded duties.
func (a *Actuator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.duties = nil
}

// Paced limits a sensor to one reading per interval, the way a real
// converter only signals ready at its output data rate.
type Paced struct {
	force.Sensor
	clk      clock.Clock
	interval uint32
	last     uint32
	primed   bool
}

var _ force.Sensor = (*Paced)(nil)

// NewPaced wraps s so that it becomes ready once per interval.
func NewPaced(s force.Sensor, clk clock.Clock, interval time.Duration) *Paced {
	return &Paced{Sensor: s, clk: clk, interval: uint32(interval.Microseconds())}
}

// IsReady reports whether the interval has elapsed since the last reading.
func (p *Paced) IsReady() bool {
	if p.primed && clock.Since(p.clk.Micros(), p.last) < p.interval {
		return false
	}
	return p.Sensor.IsReady()
}

// ReadRaw reads the wrapped sensor and restarts the interval.
func (p *Paced) ReadRaw() (int32, error) {
	p.last = p.clk.Micros()
	p.primed = true
	return p.Sensor.ReadRaw()
}
