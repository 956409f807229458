package redisserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/pulsekv/internal/core/domain"
	"github.com/yndnr/pulsekv/internal/pubsub"
	"github.com/yndnr/pulsekv/internal/storage/keyspace"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
)

const defaultDeliveryBuffer = 64

// ErrSlowSubscriber is returned by Conn.Deliver when the connection's
// delivery queue is full.
var ErrSlowSubscriber = errors.New("subscriber delivery queue full")

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds flushing one reply.
	WriteTimeout time.Duration
	// IdleTimeout closes connections that send nothing. Subscribers that
	// only listen must send PING to stay connected. Zero disables it.
	IdleTimeout time.Duration
	// DeliveryTimeout bounds writing queued messages to a subscriber. A
	// subscriber that does not drain them in time is disconnected.
	DeliveryTimeout time.Duration
	// DeliveryBuffer is the per-connection queue of undelivered messages.
	// Messages published while it is full are dropped for that connection.
	DeliveryBuffer int
	// RateLimit is the maximum number of commands per second per client IP.
	// Zero disables rate limiting.
	RateLimit int
	// MaxConns caps concurrent connections. Zero means unlimited.
	MaxConns int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0,
		DeliveryTimeout: 5 * time.Second,
		DeliveryBuffer:  defaultDeliveryBuffer,
		RateLimit:       0,
		MaxConns:        0,
	}
}

// Server is the RESP protocol server.
type Server struct {
	cfg      *Config
	handler  *CommandHandler
	registry *pubsub.Registry
	metrics  *metric.Registry
	logger   *slog.Logger
	limiters *clientLimiters

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	connsMu sync.Mutex
	conns   map[*Conn]struct{}
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables command and connection metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Conn is a single client connection. It is also the pubsub.Sink that
// receives messages for the channels it subscribed to.
type Conn struct {
	id      string
	netConn net.Conn
	br      *bufio.Reader

	// bw stages replies in pending; only the connection goroutine uses it.
	bw      *bufio.Writer
	pending bytes.Buffer

	// wmu serializes writes to netConn between replies and deliveries.
	// Queued deliveries are drained while holding it, so a message queued
	// before a reply is flushed reaches the client first.
	wmu             sync.Mutex
	deliveryTimeout time.Duration
	outbox          chan []byte
	wake            chan struct{}
	done            chan struct{}

	limiter *rate.Limiter
	quit    bool
	closed  atomic.Bool
}

var _ pubsub.Sink = (*Conn)(nil)

func newConn(id string, c net.Conn, deliveryTimeout time.Duration, deliveryBuffer int) *Conn {
	if deliveryBuffer <= 0 {
		deliveryBuffer = defaultDeliveryBuffer
	}
	conn := &Conn{
		id:              id,
		netConn:         c,
		br:              bufio.NewReader(c),
		deliveryTimeout: deliveryTimeout,
		outbox:          make(chan []byte, deliveryBuffer),
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
	conn.bw = bufio.NewWriter(&conn.pending)
	return conn
}

// ID returns the connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// Deliver queues a published message for the client and never blocks.
// It returns ErrSlowSubscriber when the queue is full and net.ErrClosed
// once the connection is closed.
func (c *Conn) Deliver(frame []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}

	select {
	case c.outbox <- frame:
	default:
		return ErrSlowSubscriber
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// deliverLoop writes queued messages until the connection closes. A write
// that misses the delivery timeout closes the connection, which makes the
// connection goroutine detach its subscriptions.
func (c *Conn) deliverLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.wmu.Lock()
		err := c.drainLocked(c.deliveryTimeout)
		c.wmu.Unlock()
		if err != nil {
			_ = c.Close()
			return
		}
	}
}

// drainLocked writes every queued message. wmu must be held.
func (c *Conn) drainLocked(timeout time.Duration) error {
	for {
		select {
		case frame := <-c.outbox:
			if err := c.writeLocked(frame, timeout); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Conn) writeLocked(b []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	_, err := c.netConn.Write(b)
	return err
}

// flush writes pending deliveries and then the staged replies.
func (c *Conn) flush(timeout time.Duration) error {
	if err := c.bw.Flush(); err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.drainLocked(timeout); err != nil {
		return err
	}
	if c.pending.Len() == 0 {
		return nil
	}
	err := c.writeLocked(c.pending.Bytes(), timeout)
	c.pending.Reset()
	return err
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a new RESP server over store and registry.
func New(cfg *Config, store *keyspace.Store, registry *pubsub.Registry, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:      cfg,
		registry: registry,
		logger:   slog.Default(),
		conns:    make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RateLimit > 0 {
		s.limiters = newClientLimiters(cfg.RateLimit)
	}
	s.handler = NewCommandHandler(store, registry, s.metrics, s.logger)

	return s
}

// Start binds the listener and serves connections in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("resp server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("resp server accept error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.connsMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connsMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

// ActiveConns returns the number of open client connections.
func (s *Server) ActiveConns() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		c, ok := s.admit(nc)
		if !ok {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, c)
		}()
	}
}

// admit registers a new connection, or rejects it when the server is full.
func (s *Server) admit(nc net.Conn) (*Conn, bool) {
	id, err := domain.NewConnID()
	if err != nil {
		s.logger.Error("generate connection id", "error", err)
		_ = nc.Close()
		return nil, false
	}
	c := newConn(id, nc, s.cfg.DeliveryTimeout, s.cfg.DeliveryBuffer)

	s.connsMu.Lock()
	if s.cfg.MaxConns > 0 && len(s.conns) >= s.cfg.MaxConns {
		s.connsMu.Unlock()
		s.logger.Warn("connection rejected, limit reached", "remote", nc.RemoteAddr(), "max_conns", s.cfg.MaxConns)
		_ = WriteError(c.bw, "ERR max number of clients reached")
		_ = c.flush(s.cfg.WriteTimeout)
		_ = c.Close()
		return nil, false
	}
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()

	if s.metrics != nil {
		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ConnectionsActive.Inc()
	}
	return c, true
}

// release undoes admit and removes the connection's subscriptions.
func (s *Server) release(c *Conn) {
	_ = c.Close()

	n := 0
	if s.registry != nil {
		n = s.registry.Detach(c)
	}
	if c.limiter != nil {
		s.limiters.release(clientIP(c.RemoteAddr()))
	}

	s.connsMu.Lock()
	_, tracked := s.conns[c]
	delete(s.conns, c)
	s.connsMu.Unlock()

	if tracked && s.metrics != nil {
		s.metrics.ConnectionsActive.Dec()
	}
	s.logger.Debug("connection closed", "conn", c.ID(), "subscriptions_dropped", n)
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer s.release(c)

	readTimeout := s.cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	if s.limiters != nil {
		c.limiter = s.limiters.acquire(clientIP(c.RemoteAddr()))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.deliverLoop()
	}()

	log := s.logger.With("conn", c.ID())
	log.Debug("connection accepted", "remote", c.RemoteAddr())

	for {
		if ctx.Err() != nil {
			return
		}

		// Wait for the first byte under the idle timeout.
		var idleDeadline time.Time
		if s.cfg.IdleTimeout > 0 {
			idleDeadline = time.Now().Add(s.cfg.IdleTimeout)
		}
		if err := c.netConn.SetReadDeadline(idleDeadline); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(log, err)
			return
		}

		// Then tighten to the per-command read timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		cmd, err := ReadCommand(c.br)
		if err != nil {
			if !errors.Is(err, domain.ErrProtocol) {
				s.logReadError(log, err)
				return
			}
			if s.metrics != nil {
				s.metrics.ProtocolErrors.Inc()
			}
			_ = WriteError(c.bw, ProtocolErrorText(err))
			if errors.Is(err, ErrLimitExceeded) {
				log.Warn("protocol limit exceeded", "remote", c.RemoteAddr(), "error", err)
				_ = c.flush(writeTimeout)
				return
			}
			log.Debug("protocol error", "error", err)
			// Drop the rest of what was received and resume on the next read.
			_, _ = c.br.Discard(c.br.Buffered())
			if err := c.flush(writeTimeout); err != nil {
				return
			}
			continue
		}
		if cmd == nil {
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			if s.metrics != nil {
				s.metrics.RateLimited.Inc()
			}
			_ = WriteError(c.bw, replyError(cmd.Name, domain.ErrRateLimited))
		} else {
			s.handler.Handle(c, cmd)
		}

		if err := c.flush(writeTimeout); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
		if c.quit {
			return
		}
	}
}

func (s *Server) logReadError(log *slog.Logger, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.Debug("connection timed out")
		return
	}
	log.Debug("connection read error", "error", err)
}
