// Package calib runs the timed calibration procedures of a force channel
// and persists their results.
//
// Every procedure blocks for its full duration: the operator is prompted,
// given Delay to prepare the load cell, and the channel is sampled. Nothing
// else runs on the control loop meanwhile.
package calib

import (
	"fmt"
	"log"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/store"
)

const (
	// DefaultDelay is how long the operator has to prepare each phase.
	DefaultDelay = 5 * time.Second
	// DefaultWeight is the reference weight in grams used by Scale.
	DefaultWeight float32 = 50
	// DefaultSamples is the number of readings averaged per measurement.
	DefaultSamples = 10
)

// Settings tune the procedures.
type Settings struct {
	Delay   time.Duration
	Weight  float32 // grams
	Samples int
}

// DefaultSettings returns the built-in procedure tuning.
func DefaultSettings() Settings {
	return Settings{
		Delay:   DefaultDelay,
		Weight:  DefaultWeight,
		Samples: DefaultSamples,
	}
}

// Prompt receives operator instructions. Nil prompts go to the log.
type Prompt func(msg string)

// Manager calibrates channels and writes the results to a store.
type Manager struct {
	clk      clock.Clock
	store    store.Store
	settings Settings
	prompt   Prompt
}

// New creates a Manager. Zero settings fall back to the defaults.
func New(clk clock.Clock, s store.Store, settings Settings, prompt Prompt) *Manager {
	m := &Manager{
		clk:    clk,
		store:  s,
		prompt: prompt,
	}
	m.SetSettings(settings)
	return m
}

// Settings returns the current tuning.
func (m *Manager) Settings() Settings { return m.settings }

// SetSettings replaces the tuning. Zero or negative fields keep their defaults.
func (m *Manager) SetSettings(s Settings) {
	if s.Delay <= 0 {
		s.Delay = DefaultDelay
	}
	if s.Weight <= 0 || math32.IsNaN(s.Weight) {
		s.Weight = DefaultWeight
	}
	if s.Samples <= 0 {
		s.Samples = DefaultSamples
	}
	m.settings = s
}

// SetWeight changes the reference weight used by Scale.
func (m *Manager) SetWeight(grams float32) error {
	if grams <= 0 || math32.IsNaN(grams) {
		return fmt.Errorf("calibration weight %v: must be positive", grams)
	}
	m.settings.Weight = grams
	return nil
}

// Scale derives counts per gram from the reference weight. A zero or NaN
// result is discarded and the previous scale is kept.
func (m *Manager) Scale(ch *force.Channel) error {
	side := ch.Side()
	if err := m.tare(ch, "clear the %s load cell from any weight"); err != nil {
		return err
	}

	m.say("place the %.0fg calibration weight on the %s load cell", m.settings.Weight, side)
	m.clk.Sleep(m.settings.Delay)
	avg, err := ch.ReadAverage(m.clk, m.settings.Samples)
	if err != nil {
		return fmt.Errorf("calibrate %s scale: %w", side, err)
	}

	p := ch.Params()
	scale := (avg - float32(p.Offset)) / m.settings.Weight
	if !force.ValidScale(scale) {
		log.Printf("%s sensor: calibration produced scale %v, keeping %v", side, scale, p.Scale)
		return nil
	}

	p.Scale = scale
	ch.SetParams(p)
	if err := store.SaveScale(m.store, side, scale); err != nil {
		return fmt.Errorf("calibrate %s scale: %w", side, err)
	}
	m.say("%s scale: %f", side, scale)
	return nil
}

// Range records the unloaded and the fully loaded reading as min and max.
// A degenerate range is replaced by the built-in defaults, which are
// persisted instead.
func (m *Manager) Range(ch *force.Channel) error {
	side := ch.Side()
	if err := m.tare(ch, "clear the %s load cell from any weight"); err != nil {
		return err
	}
	lo, err := m.units(ch)
	if err != nil {
		return fmt.Errorf("calibrate %s range: %w", side, err)
	}
	m.say("%s min: %d", side, lo)

	m.say("place the max. allowed weight on the %s load cell", side)
	m.clk.Sleep(m.settings.Delay)
	hi, err := m.units(ch)
	if err != nil {
		return fmt.Errorf("calibrate %s range: %w", side, err)
	}

	if lo >= hi {
		log.Printf("%s sensor: min %d exceeded max %d during range calibration, using defaults", side, lo, hi)
		lo, hi = force.DefaultMin, force.DefaultMax
	}

	p := ch.Params()
	p.Min, p.Max = lo, hi
	ch.SetParams(p)
	if err := store.SaveRange(m.store, side, lo, hi); err != nil {
		return fmt.Errorf("calibrate %s range: %w", side, err)
	}
	m.say("%s max: %d", side, hi)
	return nil
}

// Min records the resting reading as the lower bound. A result at or above
// the current max becomes 0.
func (m *Manager) Min(ch *force.Channel) error {
	side := ch.Side()
	if err := m.tare(ch, "rest your hand on the %s handle"); err != nil {
		return err
	}
	lo, err := m.units(ch)
	if err != nil {
		return fmt.Errorf("calibrate %s min: %w", side, err)
	}

	p := ch.Params()
	if lo >= p.Max {
		log.Printf("%s sensor: min %d exceeded max %d", side, lo, p.Max)
		lo = 0
	}

	p.Min = lo
	ch.SetParams(p)
	if err := store.SaveMin(m.store, side, lo); err != nil {
		return fmt.Errorf("calibrate %s min: %w", side, err)
	}
	m.say("%s min: %d", side, lo)
	return nil
}

// Tare zeroes the channel without waiting. Nothing is persisted.
func (m *Manager) Tare(ch *force.Channel) error {
	m.say("taring %s sensor", ch.Side())
	if err := ch.Tare(m.clk, m.settings.Samples); err != nil {
		return fmt.Errorf("%s: %w", ch.Side(), err)
	}
	m.say("tare complete, offset %d", ch.Offset())
	return nil
}

func (m *Manager) tare(ch *force.Channel, prompt string) error {
	m.say(prompt, ch.Side())
	m.clk.Sleep(m.settings.Delay)
	if err := ch.Tare(m.clk, m.settings.Samples); err != nil {
		return fmt.Errorf("%s: %w", ch.Side(), err)
	}
	return nil
}

func (m *Manager) units(ch *force.Channel) (uint32, error) {
	u, err := ch.ReadUnits(m.clk, m.settings.Samples)
	if err != nil {
		return 0, err
	}
	return force.UnitsToStored(u), nil
}

func (m *Manager) say(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if m.prompt != nil {
		m.prompt(msg)
		return
	}
	log.Print(msg)
}
