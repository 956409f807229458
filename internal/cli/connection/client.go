package connection

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTimeout bounds dialing and each request.
const DefaultTimeout = 5 * time.Second

// Client issues request/reply commands to a pulsekv server.
type Client struct {
	addr string
	rdb  *redis.Client
}

// NewClient creates a client for addr. No connection is made until the
// first command.
func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		addr: addr,
		rdb: redis.NewClient(&redis.Options{
			Addr:         addr,
			Protocol:     2,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			PoolSize:     1,
		}),
	}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Ping checks the server is reachable.
func (c *Client) Ping(ctx context.Context) (string, error) {
	return c.rdb.Ping(ctx).Result()
}

// Get returns the value of key. found is false when the key is absent or
// expired.
func (c *Client) Get(ctx context.Context, key string) (value string, found bool, err error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

// Del removes key and reports how many entries were removed.
func (c *Client) Del(ctx context.Context, key string) (int64, error) {
	return c.rdb.Del(ctx, key).Result()
}

// Expire sets a time to live on key. seconds is passed through unparsed so
// the server validates it. ok is false when the key does not exist.
func (c *Client) Expire(ctx context.Context, key, seconds string) (ok bool, err error) {
	_, err = c.rdb.Do(ctx, "expire", key, seconds).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Publish sends message to channel.
func (c *Client) Publish(ctx context.Context, channel, message string) (int64, error) {
	return c.rdb.Publish(ctx, channel, message).Result()
}

// Do sends an arbitrary command. A null reply is returned as nil.
func (c *Client) Do(ctx context.Context, args ...string) (any, error) {
	a := make([]any, len(args))
	for i, s := range args {
		a[i] = s
	}
	v, err := c.rdb.Do(ctx, a...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	return c.rdb.Close()
}
