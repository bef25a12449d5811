package haptics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/pseudobend/pkg/actuation"
	"github.com/itohio/pseudobend/pkg/board/sim"
	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/pulse"
	"github.com/itohio/pseudobend/pkg/store"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

type rig struct {
	e       *Engine
	clk     *clock.Fake
	sensors [2]*sim.Sensor
	acts    [2]*sim.Actuator
	mem     *store.Mem
	sent    []telemetry.Reading
}

func newRig(t *testing.T, s Settings) *rig {
	t.Helper()
	r := &rig{
		clk:     clock.NewFake(0),
		sensors: [2]*sim.Sensor{sim.NewSensor(0), sim.NewSensor(0)},
		acts:    [2]*sim.Actuator{sim.NewActuator(), sim.NewActuator()},
		mem:     store.NewMem(),
	}
	hw := Hardware{
		Clock:     r.clk,
		Sensors:   [2]force.Sensor{r.sensors[0], r.sensors[1]},
		Actuators: [2]pulse.Actuator{r.acts[0], r.acts[1]},
		Store:     r.mem,
	}
	sink := telemetry.SinkFunc(func(rd telemetry.Reading) error {
		r.sent = append(r.sent, rd)
		return nil
	})
	e, err := New(hw, s, sink)
	require.NoError(t, err)
	r.e = e
	return r
}

func augmented(mode actuation.Mode) Settings {
	s := DefaultSettings()
	s.Augmentation = true
	s.Mode = mode
	return s
}

func TestNew_LoadsStoredCalibration(t *testing.T) {
	mem := store.NewMem()
	require.NoError(t, store.SaveScale(mem, force.Right, 2.5))
	require.NoError(t, store.SaveRange(mem, force.Right, 100, 3000))

	e, err := New(Hardware{
		Clock:   clock.NewFake(0),
		Sensors: [2]force.Sensor{sim.NewSensor(0), sim.NewSensor(0)},
		Store:   mem,
	}, DefaultSettings(), nil)
	require.NoError(t, err)

	assert.Equal(t, force.DefaultParams(), e.Channel(force.Left).Params(), "blank store falls back to defaults")
	assert.Equal(t, force.Params{Scale: 2.5, Min: 100, Max: 3000}, e.Channel(force.Right).Params())
	assert.Equal(t, actuation.Combined, e.Settings().Mode)
	assert.False(t, e.Settings().Augmentation)
}

func TestNew_RequiresSensorsAndStore(t *testing.T) {
	_, err := New(Hardware{Sensors: [2]force.Sensor{sim.NewSensor(0), sim.NewSensor(0)}}, DefaultSettings(), nil)
	assert.Error(t, err)

	_, err = New(Hardware{Store: store.NewMem(), Sensors: [2]force.Sensor{sim.NewSensor(0)}}, DefaultSettings(), nil)
	assert.Error(t, err)
}

func TestStep_FirstTriggerFullDuty(t *testing.T) {
	r := newRig(t, augmented(actuation.Individual))
	r.sensors[force.Left].Set(150)

	require.NoError(t, r.e.Step())

	ch := r.e.Channel(force.Left)
	assert.InDelta(t, 135, ch.Filtered(), 1e-3)
	assert.Equal(t, uint16(1), ch.Bin())
	assert.Equal(t, []uint8{255}, r.acts[force.Left].Duties(), "un-modulated full duty on the start instant")
	assert.Empty(t, r.acts[force.Right].Duties())
}

func TestNew_ZeroPulseSettingsTakeDefaults(t *testing.T) {
	s := augmented(actuation.Individual)
	s.Pulse = pulse.Settings{}
	r := newRig(t, s)
	assert.Equal(t, pulse.DefaultSettings(), r.e.Settings().Pulse)

	r.sensors[force.Left].Set(5000)
	require.NoError(t, r.e.Step())
	assert.Equal(t, []uint8{255}, r.acts[force.Left].Duties())

	r.clk.Advance(time.Millisecond)
	require.NoError(t, r.e.Step())
	assert.True(t, r.e.Snapshot().Channels[force.Left].Pulsing)
}

func TestStep_AugmentationOffNeverVibrates(t *testing.T) {
	r := newRig(t, DefaultSettings())
	r.sensors[force.Left].Set(5000)
	r.sensors[force.Right].Set(5000)

	for i := 0; i < 10; i++ {
		require.NoError(t, r.e.Step())
		r.clk.Advance(time.Millisecond)
	}
	assert.Empty(t, r.acts[force.Left].Duties())
	assert.Empty(t, r.acts[force.Right].Duties())
}

func TestSetAugmentation_OffStopsImmediately(t *testing.T) {
	r := newRig(t, augmented(actuation.Combined))
	r.sensors[force.Left].Set(5000)
	require.NoError(t, r.e.Step())
	require.True(t, r.e.Snapshot().Channels[force.Left].Pulsing)
	require.True(t, r.e.Snapshot().Channels[force.Right].Pulsing)

	r.e.SetAugmentation(false)

	snap := r.e.Snapshot()
	assert.False(t, snap.Channels[force.Left].Pulsing)
	assert.False(t, snap.Channels[force.Right].Pulsing)
	assert.Equal(t, uint8(0), r.acts[force.Left].Duty())
	assert.Equal(t, uint8(0), r.acts[force.Right].Duty())
}

func TestStep_NoEvaluationWithoutFreshReading(t *testing.T) {
	r := newRig(t, augmented(actuation.Individual))
	r.sensors[force.Left].Set(5000)
	r.sensors[force.Left].SetReady(false)
	r.sensors[force.Right].SetReady(false)

	require.NoError(t, r.e.Step())

	assert.Empty(t, r.acts[force.Left].Duties())
	assert.Equal(t, 0, r.sensors[force.Left].Reads())
}

func TestStep_PulseTimesOut(t *testing.T) {
	s := augmented(actuation.Individual)
	s.FilterWeight = 1
	r := newRig(t, s)
	r.sensors[force.Left].Set(5000)
	require.NoError(t, r.e.Step())
	require.True(t, r.e.Snapshot().Channels[force.Left].Pulsing)

	// readings settle in the same bin, no retrigger
	for i := 0; i < 12; i++ {
		r.clk.Advance(time.Millisecond)
		require.NoError(t, r.e.Step())
	}
	assert.True(t, r.e.Snapshot().Channels[force.Left].Pulsing, "12ms < 12.5ms")
	assert.NotEqual(t, uint8(255), r.acts[force.Left].Duty(), "modulated after the start instant")

	r.clk.Advance(time.Millisecond)
	require.NoError(t, r.e.Step())
	assert.False(t, r.e.Snapshot().Channels[force.Left].Pulsing)
	assert.Equal(t, uint8(0), r.acts[force.Left].Duty())
}

func TestStep_TelemetryThrottled(t *testing.T) {
	s := DefaultSettings()
	s.Recording = true
	s.FilterWeight = 1
	r := newRig(t, s)
	r.sensors[force.Left].Set(1000)
	r.sensors[force.Right].Set(2000)

	for i := 0; i < 100; i++ {
		require.NoError(t, r.e.Step())
		r.clk.Advance(time.Millisecond)
	}

	require.Len(t, r.sent, 4, "at 0, 30, 60 and 90ms")
	last := r.sent[len(r.sent)-1]
	assert.Equal(t, int32(1000), last.Left)
	assert.Equal(t, int32(2000), last.Right)
}

func TestStep_SensorErrorStillTicks(t *testing.T) {
	r := newRig(t, augmented(actuation.Individual))
	r.sensors[force.Left].Set(5000)
	require.NoError(t, r.e.Step())

	r.sensors[force.Left].SetReady(false)
	r.e.channels[force.Right] = force.NewChannel(force.Right, failingSensor{}, force.DefaultParams(), 0, 0)
	r.clk.Advance(20 * time.Millisecond)

	err := r.e.Step()
	require.Error(t, err)
	assert.False(t, r.e.Snapshot().Channels[force.Left].Pulsing, "timeout enforced despite the error")
}

type failingSensor struct{}

func (failingSensor) IsReady() bool           { return true }
func (failingSensor) ReadRaw() (int32, error) { return 0, errors.New("bus fault") }

func TestRun_HandlesInputUntilCanceled(t *testing.T) {
	r := newRig(t, DefaultSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.e.sink = telemetry.SinkFunc(func(telemetry.Reading) error {
		cancel()
		return nil
	})

	input := make(chan string, 2)
	input <- "I"
	input <- "r"

	err := r.e.Run(ctx, input)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, actuation.Individual, r.e.Settings().Mode)
	assert.True(t, r.e.Settings().Recording)
	assert.Equal(t, 2, r.clk.Sleeps(), "one loop pause per completed iteration")
}

func TestTareAll(t *testing.T) {
	r := newRig(t, DefaultSettings())
	r.sensors[force.Left].Set(300)
	r.sensors[force.Right].Set(-40)

	require.NoError(t, r.e.TareAll())

	assert.Equal(t, int32(300), r.e.Channel(force.Left).Offset())
	assert.Equal(t, int32(-40), r.e.Channel(force.Right).Offset())
}
