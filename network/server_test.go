package network

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/sensoriq/framegate-go/pkg"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func startTestServer(t *testing.T, config *ServerConfig) *FrameServer {
	t.Helper()
	s := NewFrameServer(config)
	assert.NilError(t, s.Start(0))
	t.Cleanup(func() { s.Stop(true) })
	return s
}

func dialServer(t *testing.T, s *FrameServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	assert.NilError(t, err)
	return conn
}

func TestEndToEndPublish(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	ch := collect(s)
	conn := dialServer(t, s)
	defer conn.Close()

	// S1: one SensorData frame
	reading := pkg.SensorData{Date: 1596093655, Temperature: 25}
	body := pkg.EncodeSensorData(reading)
	_, err := conn.Write(pkg.EncodeFrame(0, body))
	assert.NilError(t, err)

	got := recvFrame(t, ch)
	assert.Equal(t, got.opcode, int16(0))
	assert.Assert(t, bytes.Equal(got.body, body))

	// S3: two frames in a single write, published in order
	two := append(pkg.EncodeFrame(1, []byte{0x01}), pkg.EncodeFrame(2, []byte{0x02})...)
	_, err = conn.Write(two)
	assert.NilError(t, err)
	assert.Equal(t, recvFrame(t, ch).opcode, int16(1))
	assert.Equal(t, recvFrame(t, ch).opcode, int16(2))

	// S6: unknown opcode is still framed and published
	_, err = conn.Write(pkg.EncodeFrame(999, []byte{0xFF, 0xFF, 0xFF, 0xFF}))
	assert.NilError(t, err)
	got = recvFrame(t, ch)
	assert.Equal(t, got.opcode, int16(999))
	assert.Assert(t, bytes.Equal(got.body, []byte{0xFF, 0xFF, 0xFF, 0xFF}))
}

func TestSplitWriteAcrossSegments(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	ch := collect(s)
	conn := dialServer(t, s)
	defer conn.Close()

	body := pkg.EncodeSensorData(pkg.SensorData{Date: 1596093655, Temperature: 25})
	frame := pkg.EncodeFrame(0, body)

	// S2: first 8 bytes, a pause, then the rest
	_, err := conn.Write(frame[:8])
	assert.NilError(t, err)
	time.Sleep(100 * time.Millisecond)
	_, err = conn.Write(frame[8:])
	assert.NilError(t, err)

	got := recvFrame(t, ch)
	assert.Assert(t, bytes.Equal(got.body, body))

	select {
	case <-ch:
		t.Fatal("frame published more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPoolReuseAcrossSequentialSessions(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	received := collect(s)

	const sessions = 10
	for i := 0; i < sessions; i++ {
		conn := dialServer(t, s)
		_, err := conn.Write(pkg.RandSensorFrame())
		assert.NilError(t, err)
		recvFrame(t, received)
		conn.Close()
		waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 0 })
	}

	// one client at a time means the pool never grows past one context
	assert.Equal(t, s.pool.Count(), 1)
}

func TestConcurrentClients(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	var frames int64
	s.OnFrameReceived(func(c *Connection, opcode int16, body []byte) {
		atomic.AddInt64(&frames, 1)
	})

	const clients = 100
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.Dial("tcp", s.Addr().String())
			if err != nil {
				t.Error(err)
				return
			}
			defer conn.Close()
			if _, err := conn.Write(pkg.RandSensorFrame()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	waitFor(t, 5*time.Second, func() bool { return atomic.LoadInt64(&frames) == clients })
	waitFor(t, 5*time.Second, func() bool { return s.ConnectionCount() == 0 })
	assert.Assert(t, s.pool.Count() <= clients)
}

func TestRegistryConsistency(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})

	conns := make([]net.Conn, 3)
	for i := range conns {
		conns[i] = dialServer(t, s)
	}
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 3 })

	// every registered entry is reachable under its peer address
	for _, conn := range conns {
		assert.Assert(t, s.GetConn(conn.LocalAddr().String()) != nil)
	}

	for _, conn := range conns {
		conn.Close()
	}
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 0 })
}

func TestIdempotentClose(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	conn := dialServer(t, s)
	defer conn.Close()
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	var closed int64
	s.OnConnectionClosed(func(c *Connection, err error) {
		atomic.AddInt64(&closed, 1)
	})

	c := s.snapshot()[0]
	s.closeConnection(c, nil)
	s.closeConnection(c, nil)

	// the second close is a no-op: no double push, no second notification
	assert.Equal(t, s.pool.Count(), 1)
	assert.Equal(t, atomic.LoadInt64(&closed), int64(1))
	assert.Equal(t, s.ConnectionCount(), 0)
}

func TestGracefulShutdownRefusesNewClients(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	s.Stop(false)

	_, err := net.DialTimeout("tcp", s.Addr().String(), 500*time.Millisecond)
	assert.Assert(t, err != nil)
}

func TestGracefulShutdownDrains(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	ch := collect(s)
	conn := dialServer(t, s)
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	s.Stop(false)

	// live connections are untouched and still publish
	assert.Equal(t, s.ConnectionCount(), 1)
	_, err := conn.Write(pkg.RandSensorFrame())
	assert.NilError(t, err)
	recvFrame(t, ch)

	conn.Close()
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 0 })
}

func TestForcedShutdownClosesClients(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})

	const clients = 5
	conns := make([]net.Conn, clients)
	for i := range conns {
		conns[i] = dialServer(t, s)
	}
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == clients })

	s.Stop(true)
	assert.Equal(t, s.ConnectionCount(), 0)

	for _, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, err := conn.Read(make([]byte, 1))
		assert.Assert(t, err != nil)
		conn.Close()
	}
}

func TestSweepKeepsLiveConnections(t *testing.T) {
	s := startTestServer(t, &ServerConfig{})
	conn := dialServer(t, s)
	defer conn.Close()
	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	s.sweep()
	assert.Equal(t, s.ConnectionCount(), 1)
}
