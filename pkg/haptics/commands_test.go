package haptics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/pseudobend/pkg/actuation"
	"github.com/itohio/pseudobend/pkg/command"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/store"
)

func TestHandleInput_Settings(t *testing.T) {
	r := newRig(t, DefaultSettings())

	r.e.HandleInput("f150")
	r.e.HandleInput("b10")
	r.e.HandleInput("d5000")
	r.e.HandleInput("w100")
	r.e.HandleInput("M")

	s := r.e.Settings()
	assert.Equal(t, float32(150), s.Pulse.Frequency)
	assert.Equal(t, uint16(10), s.Bins)
	assert.Equal(t, uint16(10), r.e.Channel(force.Left).Bins())
	assert.Equal(t, uint16(10), r.e.Channel(force.Right).Bins())
	assert.Equal(t, uint32(5000), s.Pulse.Duration)
	assert.Equal(t, float32(100), s.Calibration.Weight)
	assert.Equal(t, actuation.MaxValue, s.Mode)
}

func TestHandleInput_InvalidIsIgnored(t *testing.T) {
	r := newRig(t, DefaultSettings())
	before := r.e.Settings()

	for _, line := range []string{"", "x", "c", "cx", "f0", "f-3", "b0", "b70000", "d0", "w0", "fabc"} {
		r.e.HandleInput(line)
	}

	assert.Equal(t, before, r.e.Settings())
}

func TestApply_Toggles(t *testing.T) {
	r := newRig(t, DefaultSettings())

	require.NoError(t, r.e.Apply(command.Command{Kind: command.ToggleAugmentation}))
	require.NoError(t, r.e.Apply(command.Command{Kind: command.ToggleRecording}))
	assert.True(t, r.e.Settings().Augmentation)
	assert.True(t, r.e.Settings().Recording)

	require.NoError(t, r.e.Apply(command.Command{Kind: command.ToggleAugmentation}))
	assert.False(t, r.e.Settings().Augmentation)
}

func TestApply_Errors(t *testing.T) {
	r := newRig(t, DefaultSettings())

	err := r.e.Apply(command.Command{Kind: command.SetBins, Value: 0})
	assert.True(t, errors.Is(err, ErrInvalidSetting))

	err = r.e.Apply(command.Command{Kind: command.SetWeight, Value: -1})
	assert.True(t, errors.Is(err, ErrInvalidSetting))

	err = r.e.Apply(command.Command{Kind: command.None})
	assert.True(t, errors.Is(err, command.ErrUnknown))
}

func TestApply_CalibrationStopsPulsesAndPersists(t *testing.T) {
	r := newRig(t, augmented(actuation.Combined))
	r.sensors[force.Left].Set(5000)
	require.NoError(t, r.e.Step())
	require.True(t, r.e.Snapshot().Channels[force.Left].Pulsing)

	// tare at 5000, then 50g at 10000 counts: 100 counts per gram
	calls := 0
	r.e.channels[force.Left] = force.NewChannel(force.Left, sensorFunc(func() int32 {
		calls++
		if calls <= 10 {
			return 5000
		}
		return 10000
	}), force.DefaultParams(), 0, 0)

	r.e.HandleInput("cl")

	assert.False(t, r.e.Snapshot().Channels[force.Left].Pulsing)
	assert.False(t, r.e.Snapshot().Channels[force.Right].Pulsing)
	assert.Equal(t, float32(100), r.e.Channel(force.Left).Params().Scale)
	assert.Equal(t, int32(5000), r.e.Channel(force.Left).Offset())

	got, err := store.LoadParams(r.mem, force.Left)
	require.NoError(t, err)
	assert.Equal(t, float32(100), got.Scale)
	assert.Equal(t, 2*DefaultSettings().Calibration.Delay, r.clk.Slept())
}

func TestApply_Tare(t *testing.T) {
	r := newRig(t, DefaultSettings())
	r.sensors[force.Right].Set(777)

	r.e.HandleInput("tr")

	assert.Equal(t, int32(777), r.e.Channel(force.Right).Offset())
	assert.Equal(t, 0, r.mem.Commits)
}

func TestSnapshotString(t *testing.T) {
	r := newRig(t, DefaultSettings())
	out := r.e.Snapshot().String()

	assert.Contains(t, out, "mode: COMBINED")
	assert.Contains(t, out, "bins 80")
	assert.Contains(t, out, "left: scale=1.000000")
	assert.Contains(t, out, "right:")
}

type sensorFunc func() int32

func (f sensorFunc) IsReady() bool           { return true }
func (f sensorFunc) ReadRaw() (int32, error) { return f(), nil }
