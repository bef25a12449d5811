package haptics

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/itohio/pseudobend/pkg/command"
	"github.com/itohio/pseudobend/pkg/force"
)

// ErrInvalidSetting is returned when a setting command carries an out of
// range value.
var ErrInvalidSetting = errors.New("invalid setting")

// HandleInput parses and applies one operator line. Problems are logged as
// warnings and the loop carries on.
func (e *Engine) HandleInput(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	cmd, err := command.Parse(line)
	if err != nil {
		log.Printf("warning: %v", err)
		return
	}
	if err := e.Apply(cmd); err != nil {
		log.Printf("warning: %s: %v", cmd, err)
	}
}

// Apply executes a parsed command. Calibration commands block until the
// procedure completes; both actuators are stopped first.
func (e *Engine) Apply(cmd command.Command) error {
	switch cmd.Kind {
	case command.CalibrateScale:
		e.ctl.Disable()
		return e.calib.Scale(e.channels[cmd.Side])
	case command.CalibrateRange:
		e.ctl.Disable()
		return e.calib.Range(e.channels[cmd.Side])
	case command.CalibrateMin:
		e.ctl.Disable()
		return e.calib.Min(e.channels[cmd.Side])
	case command.Tare:
		e.ctl.Disable()
		return e.calib.Tare(e.channels[cmd.Side])

	case command.ToggleAugmentation:
		e.SetAugmentation(!e.augmentation)
	case command.ToggleRecording:
		e.SetRecording(!e.recording)
	case command.SetMode:
		e.SetMode(cmd.Mode)

	case command.SetFrequency:
		if !(cmd.Value > 0) || math.IsInf(cmd.Value, 0) {
			return fmt.Errorf("frequency %v Hz: %w", cmd.Value, ErrInvalidSetting)
		}
		s := e.mod.Settings()
		s.Frequency = float32(cmd.Value)
		e.mod.SetSettings(s)
		log.Printf("new frequency: %.2fHz", s.Frequency)
	case command.SetBins:
		if cmd.Value < 1 || cmd.Value > math.MaxUint16 {
			return fmt.Errorf("bins %v: %w", cmd.Value, ErrInvalidSetting)
		}
		n := uint16(cmd.Value)
		for _, ch := range e.channels {
			ch.SetBins(n)
		}
		e.ctl.SetBins(n)
		e.settings.Bins = n
		log.Printf("new number of bins: %d", n)
	case command.SetDuration:
		if cmd.Value < 1 || cmd.Value > math.MaxUint32 {
			return fmt.Errorf("duration %vus: %w", cmd.Value, ErrInvalidSetting)
		}
		s := e.mod.Settings()
		s.Duration = uint32(cmd.Value)
		e.mod.SetSettings(s)
		log.Printf("new pulse duration: %dus", s.Duration)
	case command.SetWeight:
		if err := e.calib.SetWeight(float32(cmd.Value)); err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidSetting)
		}
		log.Printf("new calibration weight: %vg", cmd.Value)

	case command.Help:
		log.Print("usage:\n" + command.Usage)
		log.Print(e.Snapshot())
	default:
		return fmt.Errorf("%s: %w", cmd.Kind, command.ErrUnknown)
	}
	return nil
}

// ChannelState is one side as seen by Snapshot.
type ChannelState struct {
	Params   force.Params
	Filtered float32
	Bin      uint16
	Pulsing  bool
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	Settings Settings
	Channels [2]ChannelState
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{Settings: e.Settings()}
	for _, side := range force.Sides {
		ch := e.channels[side]
		snap.Channels[side] = ChannelState{
			Params:   ch.Params(),
			Filtered: ch.Filtered(),
			Bin:      ch.Bin(),
			Pulsing:  e.mod.Active(side),
		}
	}
	return snap
}

func (s Snapshot) String() string {
	var b strings.Builder
	p := s.Settings.Pulse
	fmt.Fprintf(&b, "mode: %s, augmentation: %s, recording: %s\n",
		s.Settings.Mode, onOff(s.Settings.Augmentation), onOff(s.Settings.Recording))
	fmt.Fprintf(&b, "signal: bins %d, amp %.2f, freq %.2fHz, dur %dus\n",
		s.Settings.Bins, p.Amplitude, p.Frequency, p.Duration)
	for _, side := range force.Sides {
		c := s.Channels[side]
		fmt.Fprintf(&b, "%s: scale=%f offset=%d min=%d max=%d value=%.1f bin=%d pulsing=%t\n",
			side, c.Params.Scale, c.Params.Offset, c.Params.Min, c.Params.Max, c.Filtered, c.Bin, c.Pulsing)
	}
	return b.String()
}
