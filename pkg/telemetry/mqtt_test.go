//go:build !tinygo

package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err      error
	timedOut bool
}

func (f *fakeToken) Wait() bool                     { return !f.timedOut }
func (f *fakeToken) WaitTimeout(time.Duration) bool { return !f.timedOut }
func (f *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (f *fakeToken) Error() error { return f.err }

type fakeClient struct {
	topics   []string
	payloads [][]byte
	token    fakeToken
	closed   bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	return &f.token
}

func (f *fakeClient) Disconnect(uint) { f.closed = true }

func TestMQTT_Send(t *testing.T) {
	fc := &fakeClient{}
	m := &MQTT{client: fc, topic: DefaultTopic}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, m.Send(Reading{Timestamp: ts, Left: 10, Right: 20}))

	require.Len(t, fc.payloads, 1)
	assert.Equal(t, DefaultTopic, fc.topics[0])
	var p Payload
	require.NoError(t, json.Unmarshal(fc.payloads[0], &p))
	assert.Equal(t, Payload{Timestamp: "2026-01-02T03:04:05Z", Left: 10, Right: 20}, p)

	require.NoError(t, m.Close())
	assert.True(t, fc.closed)
}

func TestMQTT_SendErrors(t *testing.T) {
	fc := &fakeClient{token: fakeToken{timedOut: true}}
	m := &MQTT{client: fc, topic: DefaultTopic}
	assert.Error(t, m.Send(Reading{}))

	fc.token = fakeToken{err: errors.New("not connected")}
	assert.ErrorContains(t, m.Send(Reading{}), "not connected")
}
