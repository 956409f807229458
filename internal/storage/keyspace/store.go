package keyspace

import (
	"strconv"
	"time"

	"github.com/yndnr/pulsekv/internal/core/domain"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
	"github.com/yndnr/pulsekv/pkg/cmap"
)

// Store is the process-wide keyspace.
type Store struct {
	entries *cmap.Map[*domain.Entry]
	now     func() time.Time

	lazyExpired  metric.Counter
	sweptExpired metric.Counter
}

// Option configures the Store.
type Option func(*Store)

// WithShards sets the shard count of the underlying map (power of two).
func WithShards(n int) Option {
	return func(s *Store) {
		s.entries = cmap.NewWithShards[*domain.Entry](n)
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithExpiryCounters reports evictions of elapsed entries. lazy counts
// evictions on access, swept counts evictions by SweepExpired.
func WithExpiryCounters(lazy, swept metric.Counter) Option {
	return func(s *Store) {
		if lazy != nil {
			s.lazyExpired = lazy
		}
		if swept != nil {
			s.sweptExpired = swept
		}
	}
}

// New creates an empty keyspace.
func New(opts ...Option) *Store {
	s := &Store{
		entries:      cmap.New[*domain.Entry](),
		now:          time.Now,
		lazyExpired:  nopCounter{},
		sweptExpired: nopCounter{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Set stores value under key, replacing any previous entry and its expiry.
func (s *Store) Set(key string, value []byte) error {
	if key == "" {
		return domain.ErrArgument.WithDetails("key is required")
	}
	if len(value) == 0 {
		return domain.ErrArgument.WithDetails("value is required")
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries.Set(key, domain.NewEntry(stored))
	return nil
}

// Get returns the value stored under key. The boolean is false when the key
// is absent or its expiry has elapsed; in the latter case the entry is
// evicted before Get returns.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, domain.ErrArgument.WithDetails("key is required")
	}

	var (
		value []byte
		found bool
	)
	now := s.now().UnixMilli()
	s.entries.Compute(key, func(e *domain.Entry, ok bool) (*domain.Entry, cmap.Action) {
		if !ok {
			return nil, cmap.Keep
		}
		if e.ExpiredAt(now) {
			s.lazyExpired.Inc()
			return nil, cmap.Remove
		}
		value, found = e.Value, true
		return e, cmap.Keep
	})
	return value, found, nil
}

// Del removes key and returns 1 if an entry was present, 0 otherwise.
//
// Expiry is not consulted: an elapsed entry that has not been evicted yet
// still counts as removed.
func (s *Store) Del(key string) (int, error) {
	if key == "" {
		return 0, domain.ErrArgument.WithDetails("key is required")
	}
	if s.entries.Delete(key) {
		return 1, nil
	}
	return 0, nil
}

// Expire sets the expiry of key to seconds from now and reports whether the
// key existed. seconds must be a non-negative base-10 integer. An entry
// whose previous expiry already elapsed is evicted and reported as absent.
func (s *Store) Expire(key, seconds string) (bool, error) {
	if key == "" {
		return false, domain.ErrArgument.WithDetails("key is required")
	}
	n, err := ParseSeconds(seconds)
	if err != nil {
		return false, err
	}

	var found bool
	now := s.now().UnixMilli()
	s.entries.Compute(key, func(e *domain.Entry, ok bool) (*domain.Entry, cmap.Action) {
		if !ok {
			return nil, cmap.Keep
		}
		if e.ExpiredAt(now) {
			s.lazyExpired.Inc()
			return nil, cmap.Remove
		}
		// Entries are replaced rather than mutated so values handed out by
		// Get never change underneath a reader.
		next := &domain.Entry{Value: e.Value}
		next.ExpireAfter(now, n)
		found = true
		return next, cmap.Store
	})
	return found, nil
}

// TTL returns the remaining lifetime of key in milliseconds. ok is false
// when the key is absent or elapsed; zero with ok true means no expiry is
// set. TTL never evicts.
func (s *Store) TTL(key string) (int64, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return 0, false
	}
	now := s.now().UnixMilli()
	if e.ExpiredAt(now) {
		return 0, false
	}
	if e.ExpiresAt == 0 {
		return 0, true
	}
	return e.ExpiresAt - now, true
}

// Len returns the number of stored entries, including elapsed entries that
// have not been evicted yet.
func (s *Store) Len() int {
	return s.entries.Count()
}

// ShardLoad returns the number of entries held by each lock shard, in
// shard order. A skewed load points at hot keys sharing a shard.
func (s *Store) ShardLoad() []int {
	stats := s.entries.Stats()
	load := make([]int, len(stats))
	for _, st := range stats {
		load[st.Index] = st.Count
	}
	return load
}

// SweepExpired evicts every entry whose expiry has elapsed and returns how
// many were removed.
func (s *Store) SweepExpired() int {
	now := s.now().UnixMilli()
	n := s.entries.RemoveIf(func(_ string, e *domain.Entry) bool {
		return e.ExpiredAt(now)
	})
	if n > 0 {
		s.sweptExpired.Add(float64(n))
	}
	return n
}

// ParseSeconds parses an EXPIRE argument.
func ParseSeconds(seconds string) (int64, error) {
	if seconds == "" {
		return 0, domain.ErrArgument.WithDetails("seconds is required")
	}
	n, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil {
		return 0, domain.ErrArgument.WithDetails("seconds is not an integer").WithCause(err)
	}
	if n < 0 {
		return 0, domain.ErrArgument.WithDetails("seconds must not be negative")
	}
	if n > maxExpireSeconds {
		return 0, domain.ErrArgument.WithDetails("seconds out of range")
	}
	return n, nil
}

// maxExpireSeconds keeps n*1000 below 2^62, so adding any Unix-ms clock
// reading before 2^62 cannot overflow int64.
const maxExpireSeconds = 1<<62/1000 - 1

type nopCounter struct{}

func (nopCounter) Inc()        {}
func (nopCounter) Add(float64) {}
