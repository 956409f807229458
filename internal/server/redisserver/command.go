package redisserver

import (
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/pulsekv/internal/core/domain"
	"github.com/yndnr/pulsekv/internal/pubsub"
	"github.com/yndnr/pulsekv/internal/storage/keyspace"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
)

// Command results recorded in metrics.
const (
	resultOK    = "ok"
	resultError = "error"
)

type commandFunc func(h *CommandHandler, c *Conn, cmd *domain.Command) error

// commands maps lower-cased command names to their handlers.
var commands = map[string]commandFunc{
	"set":       (*CommandHandler).handleSet,
	"get":       (*CommandHandler).handleGet,
	"del":       (*CommandHandler).handleDel,
	"expire":    (*CommandHandler).handleExpire,
	"ttl":       (*CommandHandler).handleTTL,
	"publish":   (*CommandHandler).handlePublish,
	"subscribe": (*CommandHandler).handleSubscribe,
	"ping":      (*CommandHandler).handlePing,
	"quit":      (*CommandHandler).handleQuit,
}

// CommandHandler routes decoded commands to the keyspace and the
// subscription registry and writes exactly one reply per command.
type CommandHandler struct {
	store    *keyspace.Store
	registry *pubsub.Registry
	metrics  *metric.Registry
	logger   *slog.Logger
}

// NewCommandHandler creates a new CommandHandler. metrics may be nil.
func NewCommandHandler(store *keyspace.Store, registry *pubsub.Registry, metrics *metric.Registry, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		store:    store,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle executes cmd on behalf of conn. The reply is buffered on the
// connection; the caller flushes it.
func (h *CommandHandler) Handle(conn *Conn, cmd *domain.Command) {
	fn, ok := commands[cmd.Name]
	if !ok {
		h.logger.Debug("unknown command", "conn", conn.ID(), "command", logNameOf(cmd.Name))
		h.observe("unknown", resultError, 0)
		_ = WriteError(conn.bw, replyError(cmd.Name, domain.ErrUnknownCommand))
		return
	}

	start := time.Now()
	err := fn(h, conn, cmd)
	result := resultOK
	if err != nil {
		result = resultError
		_ = WriteError(conn.bw, replyError(cmd.Name, err))
	}
	h.observe(cmd.Name, result, time.Since(start))
}

func (h *CommandHandler) observe(name, result string, d time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.CommandsTotal.WithLabelValues(name, result).Inc()
	if d > 0 {
		h.metrics.CommandDuration.WithLabelValues(name).Observe(d.Seconds())
	}
}

// replyError maps a handler error to its reply text.
func replyError(name string, err error) string {
	var de *domain.DomainError
	switch {
	case errors.Is(err, domain.ErrArgument):
		return "ERR wrong number of arguments for '" + name + "' command"
	case errors.As(err, &de):
		return "ERR " + de.Message
	default:
		return "ERR " + domain.ErrInternal.Message
	}
}

// SET <key> <value>
func (h *CommandHandler) handleSet(conn *Conn, cmd *domain.Command) error {
	key := string(cmd.Arg(0))
	if err := h.store.Set(key, cmd.Arg(1)); err != nil {
		return err
	}
	h.logger.Debug("set", "conn", conn.ID(), "key", key)
	return WriteSimpleString(conn.bw, "OK")
}

// GET <key>
func (h *CommandHandler) handleGet(conn *Conn, cmd *domain.Command) error {
	value, found, err := h.store.Get(string(cmd.Arg(0)))
	if err != nil {
		return err
	}
	if !found {
		return WriteNullBulk(conn.bw)
	}
	return WriteBulk(conn.bw, value)
}

// DEL <key>
func (h *CommandHandler) handleDel(conn *Conn, cmd *domain.Command) error {
	n, err := h.store.Del(string(cmd.Arg(0)))
	if err != nil {
		return err
	}
	return WriteInteger(conn.bw, int64(n))
}

// EXPIRE <key> <seconds>
//
// Replies :1 when the expiry was set and a null bulk when the key is absent.
func (h *CommandHandler) handleExpire(conn *Conn, cmd *domain.Command) error {
	found, err := h.store.Expire(string(cmd.Arg(0)), string(cmd.Arg(1)))
	if err != nil {
		return err
	}
	if !found {
		return WriteNullBulk(conn.bw)
	}
	return WriteInteger(conn.bw, 1)
}

// TTL <key>
//
// Replies with the remaining seconds, -1 when no expiry is set and -2 when
// the key is absent or elapsed. TTL never evicts.
func (h *CommandHandler) handleTTL(conn *Conn, cmd *domain.Command) error {
	key := string(cmd.Arg(0))
	if key == "" {
		return domain.ErrArgument
	}
	remaining, ok := h.store.TTL(key)
	switch {
	case !ok:
		return WriteInteger(conn.bw, -2)
	case remaining == 0:
		return WriteInteger(conn.bw, -1)
	}
	return WriteInteger(conn.bw, (remaining+500)/1000)
}

// PUBLISH <channel> <message>
func (h *CommandHandler) handlePublish(conn *Conn, cmd *domain.Command) error {
	channel := string(cmd.Arg(0))
	n, err := h.registry.Publish(channel, cmd.Arg(1))
	if err != nil {
		return err
	}
	h.logger.Debug("publish", "conn", conn.ID(), "channel", channel)
	return WriteInteger(conn.bw, int64(n))
}

// SUBSCRIBE <channel>
//
// The connection stays in normal mode: it may keep issuing any command.
func (h *CommandHandler) handleSubscribe(conn *Conn, cmd *domain.Command) error {
	channel := string(cmd.Arg(0))
	if err := h.registry.Subscribe(channel, conn); err != nil {
		return err
	}
	h.logger.Debug("subscribe", "conn", conn.ID(), "channel", channel)
	return WriteSimpleString(conn.bw, "Subscribed to "+channel)
}

// PING [message]
func (h *CommandHandler) handlePing(conn *Conn, cmd *domain.Command) error {
	if msg := cmd.Arg(0); msg != nil {
		return WriteBulk(conn.bw, msg)
	}
	return WriteSimpleString(conn.bw, "PONG")
}

// QUIT
func (h *CommandHandler) handleQuit(conn *Conn, _ *domain.Command) error {
	conn.quit = true
	return WriteSimpleString(conn.bw, "OK")
}

// logNameOf bounds attacker-controlled command names before logging.
func logNameOf(name string) string {
	if len(name) > 32 {
		return name[:32] + "..."
	}
	return name
}
