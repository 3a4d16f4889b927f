//go:build linux

package network

import (
	"net"
	"testing"
	"time"

	"gotest.tools/assert"
)

func tcpPair(t *testing.T) (client net.Conn, server net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer listener.Close()

	done := make(chan net.Conn, 1)
	go func() {
		conn, aerr := listener.Accept()
		if aerr == nil {
			done <- conn
		}
	}()

	client, err = net.Dial("tcp", listener.Addr().String())
	assert.NilError(t, err)
	server = <-done
	return client, server
}

func TestIsAliveOpenSocket(t *testing.T) {
	client, server := tcpPair(t)
	defer client.Close()
	defer server.Close()

	assert.Assert(t, isAlive(server))
}

func TestIsAliveWithPendingBytes(t *testing.T) {
	client, server := tcpPair(t)
	defer client.Close()
	defer server.Close()

	_, err := client.Write([]byte{0x01, 0x02})
	assert.NilError(t, err)
	time.Sleep(50 * time.Millisecond)

	// readable with bytes waiting means the peer is alive
	assert.Assert(t, isAlive(server))
}

func TestIsAliveClosedPeer(t *testing.T) {
	client, server := tcpPair(t)
	defer server.Close()

	client.Close()
	time.Sleep(50 * time.Millisecond)

	// readable with zero bytes pending means the peer has gone
	assert.Assert(t, !isAlive(server))
}
