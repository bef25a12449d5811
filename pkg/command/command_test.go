package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/pseudobend/pkg/actuation"
	"github.com/itohio/pseudobend/pkg/force"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"cl", Command{Kind: CalibrateScale, Side: force.Left}},
		{"cr", Command{Kind: CalibrateScale, Side: force.Right}},
		{"sl", Command{Kind: CalibrateRange, Side: force.Left}},
		{"sr\n", Command{Kind: CalibrateRange, Side: force.Right}},
		{"ml", Command{Kind: CalibrateMin, Side: force.Left}},
		{"mr", Command{Kind: CalibrateMin, Side: force.Right}},
		{"tl", Command{Kind: Tare, Side: force.Left}},
		{" tr ", Command{Kind: Tare, Side: force.Right}},
		{"trx", Command{Kind: Tare, Side: force.Right}},
		{"a", Command{Kind: ToggleAugmentation}},
		{"r", Command{Kind: ToggleRecording}},
		{"I", Command{Kind: SetMode, Mode: actuation.Individual}},
		{"M", Command{Kind: SetMode, Mode: actuation.MaxValue}},
		{"C", Command{Kind: SetMode, Mode: actuation.Combined}},
		{"f150", Command{Kind: SetFrequency, Value: 150}},
		{"f 80.5", Command{Kind: SetFrequency, Value: 80.5}},
		{"b10", Command{Kind: SetBins, Value: 10}},
		{"d10000", Command{Kind: SetDuration, Value: 10000}},
		{"w50", Command{Kind: SetWeight, Value: 50}},
		{"?", Command{Kind: Help}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"c", ErrMissingTarget},
		{"m", ErrMissingTarget},
		{"cx", ErrInvalidTarget},
		{"t1", ErrInvalidTarget},
		{"x", ErrUnknown},
		{"", ErrUnknown},
		{"f", ErrBadNumber},
		{"fabc", ErrBadNumber},
		{"b", ErrBadNumber},
		{"d1.5", ErrBadNumber},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "calibrate scale left", Command{Kind: CalibrateScale}.String())
	assert.Equal(t, "set mode MAX_VALUE", Command{Kind: SetMode, Mode: actuation.MaxValue}.String())
	assert.Equal(t, "set bins 10", Command{Kind: SetBins, Value: 10}.String())
	assert.Equal(t, "toggle recording", Command{Kind: ToggleRecording}.String())
}

func TestLineBuffer(t *testing.T) {
	var lb LineBuffer
	var lines []string
	for _, b := range []byte("cl\r\n\nf 150\nb") {
		if line, ok := lb.Feed(b); ok {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, []string{"cl", "f150"}, lines)

	lb.Reset()
	_, ok := lb.Feed('\n')
	assert.False(t, ok, "partial line dropped by Reset")
}

func TestLineBuffer_Overflow(t *testing.T) {
	var lb LineBuffer
	for i := 0; i < MaxLine+10; i++ {
		lb.Feed('d')
	}
	line, ok := lb.Feed('\n')
	require.True(t, ok)
	assert.Len(t, line, MaxLine)
}
