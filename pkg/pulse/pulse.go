// Package pulse synthesizes the amplitude-modulated vibration pulses sent to
// the two actuators.
//
// Each actuator has its own pulse (start time, active flag) while a single
// free-running oscillator shapes the duty of whichever pulses are active.
package pulse

import (
	"log"

	"github.com/chewxy/math32"

	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/force"
)

const (
	// MaxDuty is the full-scale actuator duty.
	MaxDuty = 255
	// DefaultDuration is the hard pulse timeout in microseconds.
	DefaultDuration uint32 = 12500
	// DefaultFrequency is the modulation frequency in Hz.
	DefaultFrequency float32 = 80
	// DefaultAmplitude scales the duty, 1 is full scale.
	DefaultAmplitude float32 = 1
)

const twoPi = 2 * math32.Pi

// Actuator is a vibrotactile output driven by an 8-bit duty.
type Actuator interface {
	SetDuty(duty uint8) error
}

// Settings shape every pulse.
type Settings struct {
	Duration  uint32  // microseconds
	Frequency float32 // Hz
	Amplitude float32 // 0..1
}

// DefaultSettings returns the built-in pulse shape.
func DefaultSettings() Settings {
	return Settings{
		Duration:  DefaultDuration,
		Frequency: DefaultFrequency,
		Amplitude: DefaultAmplitude,
	}
}

// Oscillator is a phase accumulator advanced by wall time.
type Oscillator struct {
	phase  float32
	last   uint32
	primed bool
}

// Phase returns the current phase in [0, 2π).
func (o *Oscillator) Phase() float32 { return o.phase }

// Mark records now as the previous tick without moving the phase.
func (o *Oscillator) Mark(now uint32) {
	o.last = now
	o.primed = true
}

// Advance moves the phase by 2π·freq·dt, dt being the time since the
// previous Mark or Advance, and wraps it into [0, 2π).
func (o *Oscillator) Advance(now uint32, freq float32) float32 {
	var dt uint32
	if o.primed {
		dt = clock.Since(now, o.last)
	}
	o.Mark(now)

	o.phase += twoPi * freq * float32(dt) * 1e-6
	if o.phase >= twoPi || o.phase < 0 {
		o.phase = math32.Mod(o.phase, twoPi)
		if o.phase < 0 {
			o.phase += twoPi
		}
	}
	return o.phase
}

type state struct {
	active    bool
	startedAt uint32
}

// Modulator drives both actuators.
type Modulator struct {
	out      [2]Actuator
	pulses   [2]state
	osc      Oscillator
	settings Settings
}

// New creates a Modulator for the left and right actuators. Zero fields of s
// take their defaults.
func New(left, right Actuator, s Settings) *Modulator {
	def := DefaultSettings()
	if s.Duration == 0 {
		s.Duration = def.Duration
	}
	if s.Frequency == 0 {
		s.Frequency = def.Frequency
	}
	if s.Amplitude == 0 {
		s.Amplitude = def.Amplitude
	}
	return &Modulator{
		out:      [2]Actuator{left, right},
		settings: s,
	}
}

// Settings returns the current pulse shape.
func (m *Modulator) Settings() Settings { return m.settings }

// SetSettings replaces the pulse shape; running pulses pick it up on the next tick.
func (m *Modulator) SetSettings(s Settings) { m.settings = s }

// Phase returns the shared oscillator phase.
func (m *Modulator) Phase() float32 { return m.osc.Phase() }

// Active reports whether side is pulsing.
func (m *Modulator) Active(side force.Side) bool { return m.pulses[side].active }

// AnyActive reports whether either side is pulsing.
func (m *Modulator) AnyActive() bool {
	return m.pulses[force.Left].active || m.pulses[force.Right].active
}

// Elapsed returns how long side has been pulsing, or 0 when idle.
func (m *Modulator) Elapsed(side force.Side, now uint32) uint32 {
	if !m.pulses[side].active {
		return 0
	}
	return clock.Since(now, m.pulses[side].startedAt)
}

// Start begins a pulse on side. The first duty is written immediately and
// is not modulated.
func (m *Modulator) Start(side force.Side, now uint32) {
	m.pulses[side] = state{active: true, startedAt: now}
	m.write(side, m.baseDuty())
}

// Stop ends the pulse on side and zeroes its output.
func (m *Modulator) Stop(side force.Side) {
	m.pulses[side] = state{}
	m.write(side, 0)
}

// StopAll ends both pulses.
func (m *Modulator) StopAll() {
	for _, side := range force.Sides {
		m.Stop(side)
	}
}

// Tick enforces the pulse timeout and refreshes the modulated duty of the
// active pulses. A pulse whose elapsed time reached the duration is stopped
// in this tick regardless of who started it.
func (m *Modulator) Tick(now uint32) {
	for _, side := range force.Sides {
		if m.pulses[side].active && clock.Since(now, m.pulses[side].startedAt) >= m.settings.Duration {
			m.Stop(side)
		}
	}

	if !m.AnyActive() {
		m.osc.Mark(now)
		return
	}

	phase := m.osc.Advance(now, m.settings.Frequency)
	duty := m.modulatedDuty(phase)
	for _, side := range force.Sides {
		p := m.pulses[side]
		// the start instant keeps its un-modulated duty
		if p.active && p.startedAt != now {
			m.write(side, duty)
		}
	}
}

func (m *Modulator) amplitude() float32 {
	a := m.settings.Amplitude
	if a < 0 || math32.IsNaN(a) {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

func (m *Modulator) baseDuty() uint8 {
	return uint8(m.amplitude() * MaxDuty)
}

func (m *Modulator) modulatedDuty(phase float32) uint8 {
	return uint8(m.amplitude() * MaxDuty * (0.5 + 0.5*math32.Sin(phase)))
}

func (m *Modulator) write(side force.Side, duty uint8) {
	if m.out[side] == nil {
		return
	}
	if err := m.out[side].SetDuty(duty); err != nil {
		log.Printf("%s actuator: set duty %d: %v", side, duty, err)
	}
}
