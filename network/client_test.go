package network

import (
	"bytes"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/sensoriq/framegate-go/pkg"
)

func TestClientSendFrame(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	ch := collect(s)

	client := NewClient(s.Addr().String(), false)
	assert.NilError(t, client.Connect())
	defer client.Stop()

	body := pkg.EncodeSensorData(pkg.SensorData{Date: 1596093655, Temperature: 25})
	assert.NilError(t, client.SendFrame(0, body))

	got := recvFrame(t, ch)
	assert.Equal(t, got.opcode, int16(0))
	assert.Assert(t, bytes.Equal(got.body, body))
}

func TestClientSendWithoutConnection(t *testing.T) {
	// a port nothing listens on, without redial
	client := NewClient("127.0.0.1:1", false)
	assert.Assert(t, client.Connect() != nil)
	assert.Equal(t, client.Send([]byte{0x01}), ErrNotConnected)
}

func TestClientClosedCallback(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})

	closed := make(chan error, 1)
	client := NewClient(s.Addr().String(), false)
	client.OnConnectionClosed(func(c *Client, err error) {
		closed <- err
	})
	assert.NilError(t, client.Connect())
	defer client.Stop()

	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })
	s.Stop(true)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close callback not invoked")
	}
	assert.Equal(t, client.Send([]byte{0x01}), ErrNotConnected)
}

func TestClientStopSuppressesCallback(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})

	client := NewClient(s.Addr().String(), true)
	client.OnConnectionClosed(func(c *Client, err error) {
		t.Error("callback fired for a client-initiated stop")
	})
	assert.NilError(t, client.Connect())
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	assert.NilError(t, client.Stop())
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 0 })
}
