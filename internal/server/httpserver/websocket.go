package httpserver

import (
	"bytes"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/pulsekv/internal/core/domain"
	"github.com/yndnr/pulsekv/internal/pubsub"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512

	defaultSendBuffer   = 16
	defaultWriteTimeout = 5 * time.Second
)

var (
	errSinkClosed     = errors.New("httpserver: websocket subscriber closed")
	errSlowSubscriber = errors.New("httpserver: websocket subscriber buffer full")
)

var crlf = []byte("\r\n")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsSink is a pubsub.Sink backed by a WebSocket connection. Each push line
// becomes one text message without the trailing CRLF.
type wsSink struct {
	id           string
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newWSSink(conn *websocket.Conn, buffer int, writeTimeout time.Duration) *wsSink {
	return &wsSink{
		id:           newSinkID(),
		conn:         conn,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func newSinkID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "ws-unknown"
	}
	return "ws-" + strings.ToLower(id.String())
}

// ID implements pubsub.Sink.
func (s *wsSink) ID() string { return s.id }

// Deliver queues frame for the write pump. It never blocks: a subscriber
// whose buffer is full loses the message.
func (s *wsSink) Deliver(frame []byte) error {
	msg := bytes.Clone(bytes.TrimSuffix(frame, crlf))
	select {
	case <-s.done:
		return errSinkClosed
	default:
	}
	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return errSinkClosed
	default:
		return errSlowSubscriber
	}
}

// writePump is the only writer of data frames on the connection.
func (s *wsSink) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// readPump drains client frames until the peer goes away. Inbound data is
// ignored; it only keeps the pong deadline moving.
func (s *wsSink) readPump() {
	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *wsSink) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}

// subscribeHandler upgrades GET /subscribe/{channel} and attaches the
// connection to the registry until the peer disconnects.
type subscribeHandler struct {
	registry     *pubsub.Registry
	logger       *slog.Logger
	sendBuffer   int
	writeTimeout time.Duration

	mu    sync.Mutex
	sinks map[*wsSink]struct{}
}

func newSubscribeHandler(registry *pubsub.Registry, log *slog.Logger, sendBuffer int, writeTimeout time.Duration) *subscribeHandler {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &subscribeHandler{
		registry:     registry,
		logger:       log,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		sinks:        make(map[*wsSink]struct{}),
	}
}

func (h *subscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if channel == "" {
		writeError(w, http.StatusBadRequest, domain.ErrArgument.WithDetails("channel is required"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	sink := newWSSink(conn, h.sendBuffer, h.writeTimeout)
	h.track(sink)
	if err := h.registry.Subscribe(channel, sink); err != nil {
		h.untrack(sink)
		sink.close()
		return
	}

	h.logger.Debug("websocket subscriber attached",
		"sink", sink.ID(),
		"channel", channel,
		"request_id", GetRequestIDFromContext(r.Context()),
	)

	go sink.writePump()
	sink.readPump()

	h.registry.Detach(sink)
	h.untrack(sink)
	sink.close()

	h.logger.Debug("websocket subscriber detached", "sink", sink.ID(), "channel", channel)
}

func (h *subscribeHandler) track(s *wsSink) {
	h.mu.Lock()
	h.sinks[s] = struct{}{}
	h.mu.Unlock()
}

func (h *subscribeHandler) untrack(s *wsSink) {
	h.mu.Lock()
	delete(h.sinks, s)
	h.mu.Unlock()
}

// closeAll disconnects every attached subscriber. Hijacked connections are
// not covered by http.Server.Shutdown.
func (h *subscribeHandler) closeAll() {
	h.mu.Lock()
	sinks := make([]*wsSink, 0, len(h.sinks))
	for s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	for _, s := range sinks {
		s.close()
	}
}

func (h *subscribeHandler) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}
