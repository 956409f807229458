package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/pulsekv/internal/pubsub"
	"github.com/yndnr/pulsekv/internal/storage/keyspace"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
)

type testServer struct {
	srv      *Server
	store    *keyspace.Store
	registry *pubsub.Registry
	metrics  *metric.Registry
}

func startTestServer(t *testing.T, cfg *Config) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Addr = "127.0.0.1:0"

	ts := &testServer{
		store:    keyspace.New(),
		registry: pubsub.NewRegistry(),
		metrics:  metric.NewRegistry(),
	}
	ts.srv = New(cfg, ts.store, ts.registry, WithMetrics(ts.metrics))
	if err := ts.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ts.srv.Shutdown(ctx)
	})
	return ts
}

// rawClient speaks the wire protocol directly.
type rawClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialRaw(t *testing.T, addr net.Addr) *rawClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &rawClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *rawClient) send(s string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(s)); err != nil {
		c.t.Fatalf("write %q: %v", s, err)
	}
}

func (c *rawClient) line() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	s, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("read: %v (partial %q)", err, s)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServer_ServeConn_Pipe(t *testing.T) {
	srv := New(&Config{ReadTimeout: time.Second, WriteTimeout: time.Second}, keyspace.New(), pubsub.NewRegistry())

	server, client := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		srv.serveConn(context.Background(), newConn("conn-pipe", server, time.Second, 0))
		close(done)
	}()

	r := bufio.NewReader(client)
	exchange := func(req, want string) {
		t.Helper()
		if _, err := client.Write([]byte(req)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = client.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, len(want))
		if _, err := io.ReadFull(r, buf); err != nil {
			t.Fatalf("read reply to %q: %v", req, err)
		}
		if string(buf) != want {
			t.Errorf("reply to %q = %q, want %q", req, buf, want)
		}
	}

	exchange("*1\r\n$4\r\nPING\r\n", "+PONG\r\n")
	exchange("*3\r\n$3\r\nSET\r\n$4\r\nname\r\n$5\r\nsumit\r\n", "+OK\r\n")
	exchange("GET name\r\n", "$5\r\nsumit\r\n")
	exchange("*1\r\n$abc\r\n", "-ERR Protocol error: invalid bulk length\r\n")
	exchange("PING\r\n", "+PONG\r\n")
	exchange("QUIT\r\n", "+OK\r\n")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after QUIT")
	}
}

type frameSink struct {
	id     string
	frames chan []byte
}

func (s *frameSink) ID() string { return s.id }

func (s *frameSink) Deliver(frame []byte) error {
	select {
	case s.frames <- frame:
		return nil
	default:
		return ErrSlowSubscriber
	}
}

func TestConn_DeliverQueueFull(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConn("conn-full", server, time.Second, 2)
	frame := pubsub.FormatMessage("news", []byte("hi"))

	for i := 0; i < 2; i++ {
		if err := c.Deliver(frame); err != nil {
			t.Fatalf("Deliver #%d: %v", i+1, err)
		}
	}
	if err := c.Deliver(frame); !errors.Is(err, ErrSlowSubscriber) {
		t.Errorf("Deliver on full queue = %v, want ErrSlowSubscriber", err)
	}

	_ = c.Close()
	if err := c.Deliver(frame); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Deliver after Close = %v, want net.ErrClosed", err)
	}
}

func TestServer_StalledSubscriberDoesNotBlockPublish(t *testing.T) {
	const deliveryTimeout = 500 * time.Millisecond

	metrics := metric.NewRegistry()
	registry := pubsub.NewRegistry(
		pubsub.WithCounters(metrics.MessagesPublished, metrics.Deliveries, metrics.DeliveryFailures),
	)
	srv := New(&Config{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		DeliveryTimeout: deliveryTimeout,
		DeliveryBuffer:  4,
	}, keyspace.New(), registry)

	// net.Pipe has no buffering, so a peer that stops reading blocks every
	// write to it.
	server, client := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		srv.serveConn(context.Background(), newConn("conn-stalled", server, deliveryTimeout, 4))
		close(done)
	}()

	if _, err := client.Write([]byte("SUBSCRIBE news\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	want := "+Subscribed to news\r\n"
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(client, buf); err != nil || string(buf) != want {
		t.Fatalf("subscribe reply = (%q, %v)", buf, err)
	}

	healthy := &frameSink{id: "healthy", frames: make(chan []byte, 64)}
	if err := registry.Subscribe("news", healthy); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The client never reads again.
	const n = 20
	start := time.Now()
	for i := 0; i < n; i++ {
		if got, err := registry.Publish("news", []byte("hello")); err != nil || got != 1 {
			t.Fatalf("Publish #%d = (%d, %v)", i+1, got, err)
		}
	}
	if elapsed := time.Since(start); elapsed >= deliveryTimeout/2 {
		t.Errorf("%d publishes took %v with a stalled subscriber", n, elapsed)
	}

	if got := len(healthy.frames); got != n {
		t.Errorf("healthy subscriber got %d messages, want %d", got, n)
	}
	if got := testutil.ToFloat64(metrics.DeliveryFailures); got == 0 {
		t.Error("DeliveryFailures = 0, want dropped messages counted")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stalled subscriber not disconnected")
	}
	if got := registry.Subscribers("news"); got != 1 {
		t.Errorf("Subscribers(news) = %d after disconnect, want 1", got)
	}
}

func TestServer_LimitExceededClosesConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	c := dialRaw(t, ts.srv.Addr())

	c.send("*10000\r\n")
	if got := c.line(); !strings.HasPrefix(got, "-ERR Protocol error: ") {
		t.Errorf("reply = %q, want protocol error", got)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.r.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("read after limit violation = %v, want EOF", err)
	}
}

func TestServer_PublishSubscribe(t *testing.T) {
	ts := startTestServer(t, nil)
	sub := dialRaw(t, ts.srv.Addr())
	pub := dialRaw(t, ts.srv.Addr())

	sub.send("SUBSCRIBE news\r\n")
	if got := sub.line(); got != "+Subscribed to news\r\n" {
		t.Fatalf("subscribe reply = %q", got)
	}

	pub.send("*3\r\n$7\r\nPUBLISH\r\n$4\r\nnews\r\n$5\r\nhello\r\n")
	if got := pub.line(); got != ":1\r\n" {
		t.Fatalf("publish reply = %q, want :1", got)
	}
	if got := sub.line(); got != "Message from news: hello\r\n" {
		t.Errorf("push = %q", got)
	}

	// The subscriber keeps issuing ordinary commands.
	sub.send("SET k v\r\n")
	if got := sub.line(); got != "+OK\r\n" {
		t.Errorf("set on subscriber = %q", got)
	}

	// Publishing to a channel without subscribers still replies 1.
	pub.send("PUBLISH other hi\r\n")
	if got := pub.line(); got != ":1\r\n" {
		t.Errorf("publish reply = %q, want :1", got)
	}
}

func TestServer_SelfPublish(t *testing.T) {
	ts := startTestServer(t, nil)
	c := dialRaw(t, ts.srv.Addr())

	c.send("SUBSCRIBE me\r\n")
	c.line()
	c.send("PUBLISH me hi\r\n")

	if got := c.line(); got != "Message from me: hi\r\n" {
		t.Errorf("first line = %q, want the push", got)
	}
	if got := c.line(); got != ":1\r\n" {
		t.Errorf("second line = %q, want :1", got)
	}
}

func TestServer_DetachOnClose(t *testing.T) {
	ts := startTestServer(t, nil)
	c := dialRaw(t, ts.srv.Addr())

	c.send("SUBSCRIBE a\r\nSUBSCRIBE b\r\n")
	c.line()
	c.line()
	if got := ts.registry.Subscriptions(); got != 2 {
		t.Fatalf("Subscriptions() = %d, want 2", got)
	}

	c.conn.Close()
	waitFor(t, "subscriptions to be detached", func() bool {
		return ts.registry.Subscriptions() == 0
	})
	waitFor(t, "connection to be released", func() bool {
		return ts.srv.ActiveConns() == 0
	})
}

func TestServer_RateLimit(t *testing.T) {
	ts := startTestServer(t, &Config{RateLimit: 1})
	c := dialRaw(t, ts.srv.Addr())

	c.send("PING\r\n")
	if got := c.line(); got != "+PONG\r\n" {
		t.Fatalf("first ping = %q", got)
	}
	c.send("PING\r\n")
	if got := c.line(); got != "-ERR rate limit exceeded\r\n" {
		t.Errorf("second ping = %q, want rate limit error", got)
	}

	c.conn.Close()
	waitFor(t, "limiter release", func() bool {
		return ts.srv.limiters.size() == 0
	})
}

func TestServer_MaxConns(t *testing.T) {
	ts := startTestServer(t, &Config{MaxConns: 1})

	first := dialRaw(t, ts.srv.Addr())
	first.send("PING\r\n")
	first.line()

	second := dialRaw(t, ts.srv.Addr())
	if got := second.line(); got != "-ERR max number of clients reached\r\n" {
		t.Errorf("second connection = %q", got)
	}
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	ts := startTestServer(t, nil)
	c := dialRaw(t, ts.srv.Addr())
	c.send("PING\r\n")
	c.line()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.r.ReadByte(); err == nil {
		t.Error("connection still open after Shutdown")
	}
}

func TestServer_GoRedisClient(t *testing.T) {
	ts := startTestServer(t, nil)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:     ts.srv.Addr().String(),
		Protocol: 2,
	})
	defer client.Close()

	if pong, err := client.Ping(ctx).Result(); err != nil || pong != "PONG" {
		t.Fatalf("Ping() = (%q, %v)", pong, err)
	}

	if err := client.Set(ctx, "name", "sumit", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, err := client.Get(ctx, "name").Result(); err != nil || got != "sumit" {
		t.Errorf("Get() = (%q, %v), want sumit", got, err)
	}

	if n, err := client.Do(ctx, "expire", "name", "100").Int64(); err != nil || n != 1 {
		t.Errorf("expire = (%d, %v), want 1", n, err)
	}
	if err := client.Do(ctx, "expire", "missing", "100").Err(); !errors.Is(err, redis.Nil) {
		t.Errorf("expire missing error = %v, want redis.Nil", err)
	}

	if n, err := client.Del(ctx, "name").Result(); err != nil || n != 1 {
		t.Errorf("Del() = (%d, %v), want 1", n, err)
	}
	if _, err := client.Get(ctx, "name").Result(); !errors.Is(err, redis.Nil) {
		t.Errorf("Get() after Del error = %v, want redis.Nil", err)
	}

	if n, err := client.Publish(ctx, "news", "hello").Result(); err != nil || n != 1 {
		t.Errorf("Publish() = (%d, %v), want 1", n, err)
	}

	err := client.Do(ctx, "set", "k").Err()
	if err == nil || err.Error() != "ERR wrong number of arguments for 'set' command" {
		t.Errorf("set with one arg error = %v", err)
	}
	err = client.Do(ctx, "hgetall", "k").Err()
	if err == nil || err.Error() != "ERR unknown command" {
		t.Errorf("unknown command error = %v", err)
	}
}
