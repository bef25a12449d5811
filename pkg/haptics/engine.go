// Package haptics wires the force channels, the actuation controller and the
// pulse modulator into one control loop.
package haptics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/itohio/pseudobend/pkg/actuation"
	"github.com/itohio/pseudobend/pkg/calib"
	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/pulse"
	"github.com/itohio/pseudobend/pkg/store"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

// DefaultLoopInterval is the pause between two loop iterations in Run.
const DefaultLoopInterval = 100 * time.Microsecond

// Settings collects every runtime tunable.
type Settings struct {
	FilterWeight      float32
	TareSamples       int
	Bins              uint16
	Threshold         float32
	Guard             time.Duration
	PairGuard         time.Duration
	Pulse             pulse.Settings
	Calibration       calib.Settings
	TelemetryInterval time.Duration
	LoopInterval      time.Duration
	Mode              actuation.Mode
	Augmentation      bool
	Recording         bool
}

// DefaultSettings returns the built-in tuning. Augmentation and recording
// start disabled and the mode is Combined.
func DefaultSettings() Settings {
	return Settings{
		FilterWeight:      force.DefaultFilterWeight,
		TareSamples:       force.DefaultTareSamples,
		Bins:              force.DefaultBins,
		Threshold:         actuation.DefaultThreshold,
		Guard:             actuation.DefaultGuard,
		PairGuard:         actuation.DefaultPairGuard,
		Pulse:             pulse.DefaultSettings(),
		Calibration:       calib.DefaultSettings(),
		TelemetryInterval: telemetry.DefaultInterval,
		LoopInterval:      DefaultLoopInterval,
		Mode:              actuation.Combined,
	}
}

// Hardware is what the engine drives. Indexes are force.Side values.
type Hardware struct {
	Clock     clock.Clock
	Sensors   [2]force.Sensor
	Actuators [2]pulse.Actuator
	Store     store.Store
}

// Engine owns all control state. It is not safe for concurrent use; feed
// commands through Run or call its methods from the loop goroutine.
type Engine struct {
	clk      clock.Clock
	store    store.Store
	channels [2]*force.Channel
	mod      *pulse.Modulator
	ctl      *actuation.Controller
	calib    *calib.Manager
	throttle *telemetry.Throttle
	sink     telemetry.Sink

	settings     Settings
	augmentation bool
	recording    bool
}

// New loads both channels' calibration from the store and builds the loop.
// A nil sink drops telemetry.
func New(hw Hardware, s Settings, sink telemetry.Sink) (*Engine, error) {
	if hw.Clock == nil {
		hw.Clock = clock.NewSystem()
	}
	if hw.Store == nil {
		return nil, errors.New("no calibration store")
	}
	if s.Bins == 0 {
		s.Bins = force.DefaultBins
	}
	if s.TareSamples <= 0 {
		s.TareSamples = force.DefaultTareSamples
	}
	if s.LoopInterval <= 0 {
		s.LoopInterval = DefaultLoopInterval
	}

	e := &Engine{
		clk:      hw.Clock,
		store:    hw.Store,
		sink:     sink,
		settings: s,
		throttle: telemetry.NewThrottle(s.TelemetryInterval),
	}

	for _, side := range force.Sides {
		if hw.Sensors[side] == nil {
			return nil, fmt.Errorf("no %s sensor", side)
		}
		params, err := store.LoadParams(hw.Store, side)
		if err != nil {
			return nil, err
		}
		e.channels[side] = force.NewChannel(side, hw.Sensors[side], params, s.FilterWeight, s.Bins)
	}

	e.mod = pulse.New(hw.Actuators[force.Left], hw.Actuators[force.Right], s.Pulse)
	e.ctl = actuation.New(e.mod, e.clk, actuation.Config{
		Threshold: s.Threshold,
		Guard:     s.Guard,
		PairGuard: s.PairGuard,
		Bins:      s.Bins,
	})
	e.ctl.SetMode(s.Mode)
	e.calib = calib.New(e.clk, hw.Store, s.Calibration, nil)
	e.augmentation = s.Augmentation
	e.recording = s.Recording

	return e, nil
}

// Channel returns one side's channel.
func (e *Engine) Channel(side force.Side) *force.Channel { return e.channels[side] }

// Settings returns the current tuning, including changes made by commands.
func (e *Engine) Settings() Settings {
	s := e.settings
	s.Mode = e.ctl.Mode()
	s.Pulse = e.mod.Settings()
	s.Calibration = e.calib.Settings()
	s.Augmentation = e.augmentation
	s.Recording = e.recording
	return s
}

// TareAll zeroes both channels. Runners call it once at startup.
func (e *Engine) TareAll() error {
	var errs []error
	for _, ch := range e.channels {
		if err := ch.Tare(e.clk, e.settings.TareSamples); err != nil {
			errs = append(errs, fmt.Errorf("tare %s: %w", ch.Side(), err))
		}
	}
	return errors.Join(errs...)
}

// Step runs one loop iteration: poll both sensors, emit telemetry, evaluate
// the controller when a fresh reading arrived and advance the pulses.
// Sensor errors are returned after the iteration completes.
func (e *Engine) Step() error {
	var errs []error
	fresh := false
	for _, ch := range e.channels {
		ok, err := ch.Poll()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fresh = fresh || ok
	}

	now := e.clk.Micros()
	if e.recording && e.throttle.Allow(now) {
		e.emit()
	}

	switch {
	case !e.augmentation:
		e.ctl.Disable()
	case fresh:
		e.ctl.Evaluate(e.inputs())
	}

	e.mod.Tick(e.clk.Micros())
	return errors.Join(errs...)
}

// Run steps the loop until ctx is done. Lines received on input are
// handled between iterations, so commands never race the loop.
func (e *Engine) Run(ctx context.Context, input <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			e.ctl.Disable()
			return ctx.Err()
		case line, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			e.HandleInput(line)
		default:
		}

		if err := e.Step(); err != nil {
			log.Printf("step: %v", err)
		}
		e.clk.Sleep(e.settings.LoopInterval)
	}
}

// SetMode switches the actuation mode; running pulses are stopped.
func (e *Engine) SetMode(m actuation.Mode) {
	e.ctl.SetMode(m)
	log.Printf("vibration mode set to: %s", m)
}

// SetAugmentation enables or disables vibration. Disabling stops both
// actuators immediately.
func (e *Engine) SetAugmentation(on bool) {
	e.augmentation = on
	if !on {
		e.ctl.Disable()
	}
	log.Printf("augmentation: %s", onOff(on))
}

// SetRecording enables or disables telemetry. The first reading after
// enabling is sent without waiting for the interval.
func (e *Engine) SetRecording(on bool) {
	e.recording = on
	e.throttle.Reset()
	log.Printf("recording: %s", onOff(on))
}

func (e *Engine) inputs() actuation.Inputs {
	var in actuation.Inputs
	for _, side := range force.Sides {
		ch := e.channels[side]
		in[side] = actuation.Input{
			Value:  ch.Filtered(),
			Bin:    ch.Bin(),
			Params: ch.Params(),
		}
	}
	return in
}

func (e *Engine) emit() {
	if e.sink == nil {
		return
	}
	r := telemetry.NewReading(time.Now(), e.channels[force.Left].Filtered(), e.channels[force.Right].Filtered())
	if err := e.sink.Send(r); err != nil {
		log.Printf("telemetry: %v", err)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
