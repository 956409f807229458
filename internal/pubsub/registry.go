package pubsub

import (
	"log/slog"
	"sync"

	"github.com/yndnr/pulsekv/internal/core/domain"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
)

// Sink is a writable endpoint that receives published messages, usually one
// per client connection.
//
// The registry holds non-owning references. Deliver may be called
// concurrently from several publishers and must not block indefinitely.
type Sink interface {
	ID() string
	Deliver(frame []byte) error
}

// Registry maps channel names to their subscribers.
type Registry struct {
	mu       sync.RWMutex
	channels map[string][]Sink

	logger *slog.Logger

	published metric.Counter
	delivered metric.Counter
	failed    metric.Counter
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCounters reports accepted publishes, successful deliveries and failed
// deliveries. Nil counters are ignored.
func WithCounters(published, delivered, failed metric.Counter) Option {
	return func(r *Registry) {
		if published != nil {
			r.published = published
		}
		if delivered != nil {
			r.delivered = delivered
		}
		if failed != nil {
			r.failed = failed
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		channels:  make(map[string][]Sink),
		logger:    slog.Default(),
		published: nopCounter{},
		delivered: nopCounter{},
		failed:    nopCounter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe adds sink to channel. Subscribing the same sink twice is allowed
// and results in duplicate delivery.
func (r *Registry) Subscribe(channel string, sink Sink) error {
	if channel == "" {
		return domain.ErrArgument.WithDetails("channel is required")
	}
	if sink == nil {
		return domain.ErrArgument.WithDetails("sink is required")
	}

	r.mu.Lock()
	r.channels[channel] = append(r.channels[channel], sink)
	r.mu.Unlock()
	return nil
}

// Publish writes "Message from <channel>: <message>\r\n" to every sink
// subscribed to channel and returns 1 once the arguments are accepted,
// regardless of how many sinks received the message.
//
// Sinks are called outside the registry lock. Deliver is expected to queue
// and return; a sink that cannot accept the message reports an error and
// the message is counted as a failed delivery.
func (r *Registry) Publish(channel string, message []byte) (int, error) {
	if channel == "" {
		return 0, domain.ErrArgument.WithDetails("channel is required")
	}
	if len(message) == 0 {
		return 0, domain.ErrArgument.WithDetails("message is required")
	}

	r.mu.RLock()
	subs := r.channels[channel]
	snapshot := make([]Sink, len(subs))
	copy(snapshot, subs)
	r.mu.RUnlock()

	r.published.Inc()
	if len(snapshot) == 0 {
		return 1, nil
	}

	frame := FormatMessage(channel, message)
	for _, sink := range snapshot {
		if err := sink.Deliver(frame); err != nil {
			r.failed.Inc()
			r.logger.Debug("delivery failed",
				"channel", channel,
				"sink", sink.ID(),
				"error", err,
			)
			continue
		}
		r.delivered.Inc()
	}
	return 1, nil
}

// Detach removes every subscription held by sink and returns how many were
// removed. Channels left without subscribers stay known to the registry.
func (r *Registry) Detach(sink Sink) int {
	if sink == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for name, subs := range r.channels {
		kept := subs[:0]
		for _, s := range subs {
			if s == sink {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		// Clear the tail so detached sinks can be collected.
		for i := len(kept); i < len(subs); i++ {
			subs[i] = nil
		}
		r.channels[name] = kept
	}
	return removed
}

// Subscribers returns the number of subscriptions on channel.
func (r *Registry) Subscribers(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// Channels returns the number of channels ever subscribed to.
func (r *Registry) Channels() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Subscriptions returns the total number of (channel, sink) pairs,
// duplicates included.
func (r *Registry) Subscriptions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, subs := range r.channels {
		n += len(subs)
	}
	return n
}

// FormatMessage renders the push line delivered to subscribers.
func FormatMessage(channel string, message []byte) []byte {
	const prefix = "Message from "
	buf := make([]byte, 0, len(prefix)+len(channel)+2+len(message)+2)
	buf = append(buf, prefix...)
	buf = append(buf, channel...)
	buf = append(buf, ": "...)
	buf = append(buf, message...)
	buf = append(buf, "\r\n"...)
	return buf
}

type nopCounter struct{}

func (nopCounter) Inc()        {}
func (nopCounter) Add(float64) {}
