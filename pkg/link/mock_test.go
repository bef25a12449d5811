package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/pseudobend/pkg/config"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/haptics"
)

func testMockConfig() *config.MockConfig {
	return &config.MockConfig{
		Period:     200 * time.Millisecond,
		Peak:       8000,
		SampleRate: time.Millisecond,
	}
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil, haptics.DefaultSettings())
	assert.NotNil(t, dev.cfg)
	assert.Equal(t, 2*time.Second, dev.cfg.Period)
	assert.False(t, dev.IsConnected())
}

func TestMock_SilentUntilRecording(t *testing.T) {
	dev := NewMock(testMockConfig(), haptics.DefaultSettings())
	require.NoError(t, dev.Connect())
	defer dev.Close()

	select {
	case <-dev.Readings():
		t.Fatal("reading before recording was enabled")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestMock_GracefulShutdown tests that the mock closes its readings channel
// when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	dev := NewMock(testMockConfig(), haptics.DefaultSettings())
	require.NoError(t, dev.Connect())
	require.NoError(t, dev.Send("r"))

	readings := dev.Readings()

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range readings {
			received++
			if received == 3 {
				dev.Close()
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Readings channel did not close within timeout")
	}

	assert.GreaterOrEqual(t, received, 3)
	assert.False(t, dev.IsConnected())
	assert.Error(t, dev.Send("r"))
}

func TestMock_Vibrates(t *testing.T) {
	s := haptics.DefaultSettings()
	s.Augmentation = true
	dev := NewMock(testMockConfig(), s)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.Eventually(t, func() bool {
		return dev.Duty(force.Left) > 0 || dev.Duty(force.Right) > 0
	}, 5*time.Second, time.Millisecond)
}

func TestMock_RejectsInvalidCommand(t *testing.T) {
	dev := NewMock(testMockConfig(), haptics.DefaultSettings())
	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.Error(t, dev.Send("q"))
	assert.Error(t, dev.Connect())
}

func TestMock_ReconnectAfterClose(t *testing.T) {
	dev := NewMock(testMockConfig(), haptics.DefaultSettings())
	require.NoError(t, dev.Connect())
	first := dev.Readings()
	require.NoError(t, dev.Close())

	_, ok := <-first
	assert.False(t, ok, "first connection's readings are closed")

	require.NoError(t, dev.Connect())
	require.NoError(t, dev.Send("r"))

	select {
	case _, ok := <-dev.Readings():
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no reading after reconnect")
	}

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsConnected())
}
