// Package actuation decides, per evaluation, which actuators to start and stop.
package actuation

import (
	"time"

	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/force"
)

const (
	// DefaultThreshold is the filtered value a channel must exceed to trigger.
	DefaultThreshold float32 = 100
	// DefaultGuard separates a stop from the following start.
	DefaultGuard = 10 * time.Microsecond
	// DefaultPairGuard is the guard used when both actuators restart together.
	DefaultPairGuard = 100 * time.Microsecond
)

// Pulser starts and stops actuator pulses. *pulse.Modulator implements it.
type Pulser interface {
	Start(side force.Side, now uint32)
	Stop(side force.Side)
	Active(side force.Side) bool
}

// Config tunes the controller.
type Config struct {
	Threshold float32
	Guard     time.Duration
	PairGuard time.Duration
	Bins      uint16
}

// DefaultConfig returns the built-in controller tuning.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Guard:     DefaultGuard,
		PairGuard: DefaultPairGuard,
		Bins:      force.DefaultBins,
	}
}

// Input is one channel's state for an evaluation.
type Input struct {
	Value  float32
	Bin    uint16
	Params force.Params
}

// Inputs holds both channels, indexed by force.Side.
type Inputs [2]Input

// Track is what a side remembers about its last trigger.
type Track struct {
	LastBin   uint16
	LastValue float32
}

type pairState struct {
	active bool
	bin    uint16
}

// Controller is the actuation state machine.
type Controller struct {
	pulser Pulser
	clk    clock.Clock
	cfg    Config
	mode   Mode
	track  [2]Track
	pair   pairState
}

// New creates a controller in Combined mode.
func New(p Pulser, clk clock.Clock, cfg Config) *Controller {
	if cfg.Bins == 0 {
		cfg.Bins = force.DefaultBins
	}
	return &Controller{
		pulser: p,
		clk:    clk,
		cfg:    cfg,
		mode:   Combined,
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches mode. Both actuators are stopped and the pairing memory
// is cleared so no mode inherits pulses it did not start.
func (c *Controller) SetMode(m Mode) {
	if m == c.mode {
		return
	}
	c.mode = m
	c.Disable()
}

// Config returns the current tuning.
func (c *Controller) Config() Config { return c.cfg }

// SetBins changes the bin count used when MaxValue re-bins the winner.
func (c *Controller) SetBins(n uint16) {
	if n > 0 {
		c.cfg.Bins = n
	}
}

// Track returns what side remembers about its last trigger.
func (c *Controller) Track(side force.Side) Track { return c.track[side] }

// Disable stops both actuators immediately and forgets the Combined pairing.
func (c *Controller) Disable() {
	c.stop(force.Left, force.Right)
	c.pair = pairState{}
}

// Evaluate runs one transition of the active mode.
func (c *Controller) Evaluate(in Inputs) {
	switch c.mode {
	case Individual:
		c.individual(in)
	case MaxValue:
		c.maxValue(in)
	case Combined:
		c.combined(in)
	}
	if c.mode != Combined {
		c.pair = pairState{}
	}
}

// retrigger is the rule every mode shares: a changed bin above threshold.
// An unchanged bin never retriggers, whatever the value did.
func (c *Controller) retrigger(bin, last uint16, value float32) bool {
	return bin != last && value > c.cfg.Threshold
}

func (c *Controller) individual(in Inputs) {
	for _, side := range force.Sides {
		if !c.retrigger(in[side].Bin, c.track[side].LastBin, in[side].Value) {
			continue
		}
		c.restart(c.cfg.Guard, side)
		c.track[side] = Track{LastBin: in[side].Bin, LastValue: in[side].Value}
	}
}

func (c *Controller) maxValue(in Inputs) {
	winner := force.Left
	if in[force.Right].Value > in[force.Left].Value {
		winner = force.Right
	}
	loser := winner.Other()
	c.stop(loser)

	value := in[winner].Value
	if value <= c.cfg.Threshold {
		c.stop(winner)
		return
	}

	bin := force.BinFor(value, in[winner].Params, c.cfg.Bins)
	baseline := max(c.track[force.Left].LastBin, c.track[force.Right].LastBin)
	if !c.retrigger(bin, baseline, value) {
		return
	}

	c.restart(c.cfg.Guard, winner)
	c.track[winner] = Track{LastBin: bin, LastValue: value}
	c.track[loser].LastBin = bin
}

func (c *Controller) combined(in Inputs) {
	// both actuators always share one state in this mode
	if c.pulser.Active(force.Left) != c.pulser.Active(force.Right) {
		c.stop(force.Left, force.Right)
	}

	var changed [2]bool
	for _, side := range force.Sides {
		changed[side] = c.retrigger(in[side].Bin, c.track[side].LastBin, in[side].Value)
	}
	should := changed[force.Left] || changed[force.Right]

	bin := c.pair.bin
	switch {
	case changed[force.Left] && changed[force.Right]:
		bin = in[force.Left].Bin
		if in[force.Right].Params.Span() > in[force.Left].Params.Span() {
			bin = in[force.Right].Bin
		}
	case changed[force.Left]:
		bin = in[force.Left].Bin
	case changed[force.Right]:
		bin = in[force.Right].Bin
	}

	switch {
	case should && (!c.pair.active || bin != c.pair.bin):
		c.restart(c.cfg.PairGuard, force.Left, force.Right)
	case c.pair.active && !should:
		c.stop(force.Left, force.Right)
	}
	c.pair = pairState{active: should, bin: bin}

	for _, side := range force.Sides {
		c.track[side].LastBin = in[side].Bin
		if changed[side] {
			c.track[side].LastValue = in[side].Value
		}
	}
}

// restart stops the given sides, waits the guard interval if anything was
// running, then starts them all at the same instant.
func (c *Controller) restart(guard time.Duration, sides ...force.Side) {
	if c.stop(sides...) && guard > 0 {
		c.clk.Sleep(guard)
	}
	now := c.clk.Micros()
	for _, side := range sides {
		c.pulser.Start(side, now)
	}
}

func (c *Controller) stop(sides ...force.Side) bool {
	stopped := false
	for _, side := range sides {
		if c.pulser.Active(side) {
			c.pulser.Stop(side)
			stopped = true
		}
	}
	return stopped
}
