package network

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sensoriq/framegate-go/pkg"
)

type receivePhase int

const (
	phaseReadingHeader receivePhase = iota
	phaseReadingBody
)

// opcode value between frames
const opcodeNone = -1

// IoContext is the reusable receive scratch. It belongs to exactly one
// connection at a time: popped from the pool at accept, pushed back by the
// first close.
type IoContext struct {
	Header [pkg.HeaderSize]byte
}

// NewIoContext allocates a fresh context for a pool miss.
func NewIoContext() *IoContext {
	return &IoContext{}
}

// Connection holds info about one accepted client and its receive state
type Connection struct {
	conn   net.Conn
	Server *FrameServer

	ioc *IoContext
	id  string // peer address, doubles as the registry key

	phase   receivePhase
	filled  int // bytes accumulated into the current region
	opcode  int16
	bodyLen int32
	bodyBuf []byte // nil between frames
}

func newConnection(s *FrameServer, conn net.Conn, ioc *IoContext) *Connection {
	return &Connection{
		conn:   conn,
		Server: s,
		ioc:    ioc,
		// set peer address at start to avoid frequently system calls
		id:     conn.RemoteAddr().String(),
		phase:  phaseReadingHeader,
		opcode: opcodeNone,
	}
}

func (c *Connection) String() string {
	return c.id
}

// ID returns the registry key of this connection.
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr return peer's address
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// window is the region the next read fills: the unfilled remainder of the
// header scratch, or of the body buffer.
func (c *Connection) window() []byte {
	if c.phase == phaseReadingHeader {
		return c.ioc.Header[c.filled:pkg.HeaderSize]
	}
	return c.bodyBuf[c.filled:c.bodyLen]
}

// listen drives the receive state machine. A single read is outstanding at
// any time, so frames from one peer always publish in wire order.
func (c *Connection) listen() {
	for {
		if timeout := c.Server.GetTimeout(); timeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				c.Server.closeConnection(c, err)
				return
			}
		}

		n, err := c.conn.Read(c.window())
		if n > 0 {
			if aerr := c.advance(n); aerr != nil {
				log.Warn().Msgf("dropping %s: %v", c.id, aerr)
				c.Server.closeConnection(c, aerr)
				return
			}
		}
		if err != nil || n == 0 {
			c.Server.closeConnection(c, err)
			return
		}
	}
}

// advance accounts n freshly read bytes against the current region and
// walks the header -> body -> header cycle. Accounting is cumulative: a
// body delivered across any number of reads completes exactly when filled
// reaches bodyLen.
func (c *Connection) advance(n int) error {
	c.filled += n

	switch c.phase {
	case phaseReadingHeader:
		if c.filled < pkg.HeaderSize {
			return nil
		}
		opcode, bodyLen := pkg.ParseHeader(c.ioc.Header[:])
		if bodyLen < 0 || bodyLen > c.Server.maxBodyLen() {
			return fmt.Errorf("%w: opcode %d declares %d bytes", pkg.ErrFrameTooLarge, opcode, bodyLen)
		}
		c.filled = 0
		if bodyLen == 0 {
			// no body to wait for, publish right away
			c.reset()
			c.Server.publish(c, opcode, []byte{})
			return nil
		}
		c.opcode = opcode
		c.bodyLen = bodyLen
		c.bodyBuf = make([]byte, bodyLen)
		c.phase = phaseReadingBody

	case phaseReadingBody:
		if int32(c.filled) < c.bodyLen {
			return nil
		}
		opcode := c.opcode
		body := c.bodyBuf
		c.reset()
		c.Server.publish(c, opcode, body)
	}
	return nil
}

// reset returns the state machine to ReadingHeader between frames.
func (c *Connection) reset() {
	c.phase = phaseReadingHeader
	c.filled = 0
	c.opcode = opcodeNone
	c.bodyLen = 0
	c.bodyBuf = nil
}
