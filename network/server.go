package network

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sensoriq/framegate-go/pkg"
)

const (
	reaperFirstDelay = time.Second
	reaperInterval   = 5 * time.Second
)

var errNotAlive = errors.New("connection no longer alive")

// FrameHandler receives every completed frame. Handlers run synchronously
// on the receiving goroutine; do fast work or dispatch to your own worker
// pool.
type FrameHandler func(c *Connection, opcode int16, body []byte)

// ConnHandler observes connection lifecycle events.
type ConnHandler func(c *Connection)

// ConnClosedHandler observes connection teardown, with the error that ended
// the connection (nil for a forced close).
type ConnClosedHandler func(c *Connection, err error)

// Server is a general purpose interface for a framing tcp server
type Server interface {
	Start(port int) error
	Stop(force bool)
	ConnectionCount() int
	OnFrameReceived(handler FrameHandler)
}

// ServerConfig involve server's configurations
type ServerConfig struct {
	// Timeout is the per-read idle timeout in seconds, 0 disables it.
	Timeout int
	// MaxBodyLen caps the body length one header may declare. 0 selects
	// pkg.DefaultMaxBodyLen. Breaching headers close the connection.
	MaxBodyLen int32
}

// FrameServer owns the accept loop, the connection registry, the IoContext
// pool and the reaper, and fans completed frames out to registered sinks.
type FrameServer struct {
	Config *ServerConfig

	listener *net.TCPListener

	mapLock sync.Mutex
	conns   map[string]*Connection

	pool ContextPool

	handlerLock    sync.RWMutex
	frameHandlers  []FrameHandler
	madeHandlers   []ConnHandler
	closedHandlers []ConnClosedHandler

	shuttingDown atomic.Bool
	stopOnce     sync.Once
	downOnce     sync.Once
	reaperStop   chan struct{}
}

// NewFrameServer creates a server with the given config.
func NewFrameServer(config *ServerConfig) *FrameServer {
	if config == nil {
		config = &ServerConfig{}
	}
	return &FrameServer{
		Config:     config,
		conns:      make(map[string]*Connection),
		reaperStop: make(chan struct{}),
	}
}

// Start binds 0.0.0.0:port, begins accepting clients and arms the reaper.
// Bind failures propagate to the caller; everything after that resolves to
// log lines and connection closes.
func (s *FrameServer) Start(port int) error {
	addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return err
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go s.reap()
	go s.acceptLoop()
	log.Info().Msgf("listening at %s", listener.Addr())
	return nil
}

// Addr reports the bound listen address, nil before Start.
func (s *FrameServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GetTimeout get the per-read idle timeout
func (s *FrameServer) GetTimeout() time.Duration {
	return time.Duration(s.Config.Timeout) * time.Second
}

func (s *FrameServer) maxBodyLen() int32 {
	if s.Config.MaxBodyLen > 0 {
		return s.Config.MaxBodyLen
	}
	return pkg.DefaultMaxBodyLen
}

func (s *FrameServer) acceptLoop() {
	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if s.shuttingDown.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				continue
			}
			log.Error().Msgf("accept err: %v", err)
			return
		}

		if s.shuttingDown.Load() {
			// drop the peer: no registration, no first read
			conn.Close()
			continue
		}

		ioc := s.pool.Pop()
		if ioc == nil {
			ioc = NewIoContext()
		}
		c := newConnection(s, conn, ioc)

		s.mapLock.Lock()
		s.conns[c.id] = c
		s.mapLock.Unlock()

		s.connectionMade(c)
		go c.listen()
	}
}

// ConnectionCount reports the number of registered connections.
func (s *FrameServer) ConnectionCount() int {
	s.mapLock.Lock()
	defer s.mapLock.Unlock()

	return len(s.conns)
}

// GetConn get a registered connection via its peer address
func (s *FrameServer) GetConn(id string) *Connection {
	s.mapLock.Lock()
	defer s.mapLock.Unlock()

	return s.conns[id]
}

// OnFrameReceived subscribes a sink. Sinks run in registration order for
// every completed frame.
func (s *FrameServer) OnFrameReceived(handler FrameHandler) {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	s.frameHandlers = append(s.frameHandlers, handler)
}

// OnConnectionMade subscribes to accepted connections.
func (s *FrameServer) OnConnectionMade(handler ConnHandler) {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	s.madeHandlers = append(s.madeHandlers, handler)
}

// OnConnectionClosed subscribes to connection teardown. Fires once per
// connection, on the first close.
func (s *FrameServer) OnConnectionClosed(handler ConnClosedHandler) {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	s.closedHandlers = append(s.closedHandlers, handler)
}

// publish hands a completed frame to every sink. A failing sink must not
// starve the others and must not take the connection down with it.
func (s *FrameServer) publish(c *Connection, opcode int16, body []byte) {
	s.handlerLock.RLock()
	handlers := s.frameHandlers
	s.handlerLock.RUnlock()

	for _, handler := range handlers {
		s.invoke(handler, c, opcode, body)
	}
}

func (s *FrameServer) invoke(handler FrameHandler, c *Connection, opcode int16, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("frame sink failed, opcode: %d, conn: %s, err: %v", opcode, c.id, r)
		}
	}()
	handler(c, opcode, body)
}

func (s *FrameServer) connectionMade(c *Connection) {
	s.handlerLock.RLock()
	handlers := s.madeHandlers
	s.handlerLock.RUnlock()

	for _, handler := range handlers {
		handler(c)
	}
}

func (s *FrameServer) connectionClosed(c *Connection, err error) {
	s.handlerLock.RLock()
	handlers := s.closedHandlers
	s.handlerLock.RUnlock()

	for _, handler := range handlers {
		handler(c, err)
	}
}

// closeConnection tears a connection down. Idempotent and safe to race with
// an in-flight read or the reaper: only the caller that finds the registry
// entry recycles the IoContext, notifies subscribers and counts for the
// drain log.
func (s *FrameServer) closeConnection(c *Connection, err error) {
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		// a peer that is already gone makes this fail, which is fine
		tcp.CloseWrite()
	}
	c.conn.Close()

	s.mapLock.Lock()
	_, present := s.conns[c.id]
	delete(s.conns, c.id)
	remaining := len(s.conns)
	s.mapLock.Unlock()

	if !present {
		return
	}
	s.pool.Push(c.ioc)

	switch {
	case s.shuttingDown.Load() && (err == nil || err == io.EOF):
		// shutdown race, nothing to report
	case err == nil || err == io.EOF:
		log.Debug().Msgf("connection closed by peer: %s", c.id)
	case errors.Is(err, errNotAlive):
		log.Info().Msgf("reaped dead connection: %s", c.id)
	default:
		log.Debug().Msgf("close connection: %s, err: %v", c.id, err)
	}

	s.connectionClosed(c, err)

	if s.shuttingDown.Load() && remaining == 0 {
		s.logShutdown()
	}
}

func (s *FrameServer) logShutdown() {
	s.downOnce.Do(func() {
		log.Info().Msg("all connections closed, server was shut down")
	})
}

func (s *FrameServer) snapshot() []*Connection {
	s.mapLock.Lock()
	defer s.mapLock.Unlock()

	list := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		list = append(list, c)
	}
	return list
}

// Stop initiates shutdown and refuses new accepts. With force every live
// connection is closed immediately; otherwise existing connections drain
// naturally and the last one out emits the final log line.
func (s *FrameServer) Stop(force bool) {
	s.shuttingDown.Store(true)
	s.stopOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		close(s.reaperStop)
	})

	if force {
		for _, c := range s.snapshot() {
			s.closeConnection(c, nil)
		}
	}

	if remaining := s.ConnectionCount(); remaining == 0 {
		s.logShutdown()
	} else {
		log.Info().Msgf("server is going down, waiting for %d connections to drain", remaining)
	}
}

// reap drops connections whose sockets no longer look live. Candidates are
// copied out under the registry lock and probed outside it. Reaped
// connections run the full close path, so their IoContexts return to the
// pool.
func (s *FrameServer) reap() {
	first := time.NewTimer(reaperFirstDelay)
	defer first.Stop()

	select {
	case <-first.C:
		s.sweep()
	case <-s.reaperStop:
		return
	}

	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.reaperStop:
			return
		}
	}
}

func (s *FrameServer) sweep() {
	for _, c := range s.snapshot() {
		if !isAlive(c.conn) {
			s.closeConnection(c, errNotAlive)
		}
	}
}
