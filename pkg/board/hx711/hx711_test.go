package hx711

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChip shifts out a 24-bit word on rising clock edges.
type fakeChip struct {
	word    uint32
	bit     int
	clock   bool
	pulses  int
	ready   bool
	failAt  int
	dataErr error
}

func (f *fakeChip) SetClock(high bool) error {
	if high && !f.clock {
		f.pulses++
		if f.failAt > 0 && f.pulses == f.failAt {
			return errors.New("line busy")
		}
	}
	f.clock = high
	return nil
}

func (f *fakeChip) Data() (bool, error) {
	if f.dataErr != nil {
		return false, f.dataErr
	}
	if !f.clock {
		return !f.ready, nil
	}
	if f.bit >= 24 {
		return true, nil
	}
	v := f.word&(1<<(23-f.bit)) != 0
	f.bit++
	return v, nil
}

func TestReadRaw(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		want int32
	}{
		{"zero", 0, 0},
		{"positive", 0x012345, 0x012345},
		{"max", 0x7FFFFF, 8388607},
		{"minus one", 0xFFFFFF, -1},
		{"min", 0x800000, -8388608},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := &fakeChip{word: tt.word, ready: true}
			d := New(chip)
			require.True(t, d.IsReady())

			v, err := d.ReadRaw()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, 25, chip.pulses, "24 data bits and one gain pulse")
			assert.False(t, chip.clock, "clock left low")
		})
	}
}

func TestGainPulses(t *testing.T) {
	chip := &fakeChip{ready: true}
	d := New(chip)
	require.NoError(t, d.SetGain(GainA64))

	_, err := d.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, 27, chip.pulses)

	assert.Error(t, d.SetGain(0))
	assert.Error(t, d.SetGain(4))
}

func TestIsReady(t *testing.T) {
	chip := &fakeChip{}
	d := New(chip)
	assert.False(t, d.IsReady(), "data high while converting")

	chip.ready = true
	assert.True(t, d.IsReady())

	chip.dataErr = errors.New("gone")
	assert.False(t, d.IsReady())
}

func TestReadRaw_PinError(t *testing.T) {
	chip := &fakeChip{ready: true, failAt: 5}
	_, err := New(chip).ReadRaw()
	assert.ErrorContains(t, err, "line busy")
}

func TestPowerCycle(t *testing.T) {
	chip := &fakeChip{}
	d := New(chip)
	require.NoError(t, d.SetGain(GainB32))

	require.NoError(t, d.PowerDown())
	assert.True(t, chip.clock)
	require.NoError(t, d.PowerUp())
	assert.False(t, chip.clock)
	assert.Equal(t, GainA128, d.gain)
}
