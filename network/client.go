package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sensoriq/framegate-go/pkg"
)

// ErrNotConnected reports a send attempted between dials.
var ErrNotConnected = errors.New("client not connected")

const redialBackoff = 2 * time.Second

// Client is a framing client for demos and tests. It frames outbound
// messages and optionally redials when the gateway goes away. The gateway
// has no send path, so the only inbound event a client ever sees is its
// connection ending.
type Client struct {
	ID string

	addr   string
	redial bool

	onClosed func(c *Client, err error)

	lock sync.Mutex
	conn net.Conn

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a client for the given gateway address. With redial
// enabled, a lost or failed connection is retried in the background until
// Stop.
func NewClient(addr string, redial bool) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		addr:     addr,
		redial:   redial,
		onClosed: func(c *Client, err error) {},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnConnectionClosed called after an established connection is lost,
// before any redial
func (c *Client) OnConnectionClosed(callback func(c *Client, err error)) {
	c.onClosed = callback
}

// Connect dials the gateway. With redial enabled a failed dial moves to
// the background loop and Connect reports nil.
func (c *Client) Connect() error {
	err := c.dial()
	if err != nil && c.redial {
		go c.redialLoop()
		return nil
	}
	return err
}

func (c *Client) dial() error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(c.ctx, "tcp", c.addr)
	if err != nil {
		log.Debug().Str("id", c.ID).Msgf("dial %s: %v", c.addr, err)
		return err
	}

	c.lock.Lock()
	c.conn = conn
	c.lock.Unlock()

	log.Debug().Str("id", c.ID).Msgf("connected to %s as %s", c.addr, conn.LocalAddr())
	go c.watch(conn)
	return nil
}

// watch blocks on a read until the server side goes away; no application
// data ever arrives on this path.
func (c *Client) watch(conn net.Conn) {
	_, err := conn.Read(make([]byte, 1))
	conn.Close()

	c.lock.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.lock.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	c.onClosed(c, err)
	if c.redial {
		go c.redialLoop()
	}
}

func (c *Client) redialLoop() {
	ticker := time.NewTicker(redialBackoff)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}
		if c.dial() == nil {
			return
		}
	}
}

// Send write raw bytes to the gateway. Useful to exercise arbitrary
// segment boundaries; regular traffic goes through SendFrame.
func (c *Client) Send(message []byte) error {
	c.lock.Lock()
	conn := c.conn
	c.lock.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	_, err := conn.Write(message)
	return err
}

// SendFrame frame and send one opcode-tagged message
func (c *Client) SendFrame(opcode int16, body []byte) error {
	return c.Send(pkg.EncodeFrame(opcode, body))
}

// Stop ends the client, closing any live connection and cancelling redial.
func (c *Client) Stop() error {
	c.cancel()

	c.lock.Lock()
	conn := c.conn
	c.conn = nil
	c.lock.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
