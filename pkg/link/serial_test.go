package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort feeds lines written to in and records what the host sends.
type fakePort struct {
	in  *io.PipeReader
	out *io.PipeWriter

	mu   sync.Mutex
	sent bytes.Buffer
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{in: r, out: w}
}

func (f *fakePort) Read(p []byte) (int, error) { return f.in.Read(p) }

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent.Write(p)
}

func (f *fakePort) Close() error { return f.in.Close() }

func (f *fakePort) Sent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent.String()
}

func connectFake(t *testing.T) (*Serial, *fakePort) {
	t.Helper()
	port := newFakePort()
	dev := New("fake", 0, 4)
	dev.open = func(string, int) (io.ReadWriteCloser, error) { return port, nil }
	require.NoError(t, dev.Connect())
	return dev, port
}

func TestNew(t *testing.T) {
	dev := New("/dev/ttyACM0", 9600, 10)
	assert.NotNil(t, dev)
	assert.Equal(t, "/dev/ttyACM0", dev.port)
	assert.Equal(t, 9600, dev.baudRate)
	assert.Equal(t, 10, dev.bufSize)
	assert.False(t, dev.IsConnected())
}

func TestNew_Defaults(t *testing.T) {
	dev := New("/dev/ttyACM0", 0, 0)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func TestSerial_Readings(t *testing.T) {
	dev, port := connectFake(t)

	go func() {
		io.WriteString(port.out, "recording: on\n")
		io.WriteString(port.out, "120,-3\n\n")
		io.WriteString(port.out, "not,a number\n")
		io.WriteString(port.out, "0,4500\n")
	}()

	var got []int32
	for len(got) < 4 {
		select {
		case r := <-dev.Readings():
			assert.False(t, r.Timestamp.IsZero(), "readings are stamped on receipt")
			got = append(got, r.Left, r.Right)
		case <-time.After(5 * time.Second):
			t.Fatal("no reading")
		}
	}
	assert.Equal(t, []int32{120, -3, 0, 4500}, got)

	require.NoError(t, dev.Close())
	_, ok := <-dev.Readings()
	assert.False(t, ok, "Channel should be closed")
}

func TestSerial_Send(t *testing.T) {
	dev, port := connectFake(t)
	defer dev.Close()

	require.NoError(t, dev.Send("a"))
	require.NoError(t, dev.Send(" cl "))
	require.NoError(t, dev.Send("f150"))
	assert.Equal(t, "a\ncl\nf150\n", port.Sent())

	assert.Error(t, dev.Send("x"), "unknown command not sent")
	assert.Error(t, dev.Send("c"), "missing target not sent")
	assert.Equal(t, "a\ncl\nf150\n", port.Sent())
}

func TestSerial_NotConnected(t *testing.T) {
	dev := New("fake", 0, 0)
	assert.Error(t, dev.Send("a"))
	assert.NoError(t, dev.Close())
}

func TestSerial_ConnectTwice(t *testing.T) {
	dev, _ := connectFake(t)
	defer dev.Close()
	assert.True(t, dev.IsConnected())
	assert.Error(t, dev.Connect())
}

func TestSerial_OpenError(t *testing.T) {
	dev := New("fake", 0, 0)
	dev.open = func(string, int) (io.ReadWriteCloser, error) { return nil, errors.New("busy") }
	assert.ErrorContains(t, dev.Connect(), "busy")
	assert.False(t, dev.IsConnected())
}
