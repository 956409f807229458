package redisserver

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiters holds one token bucket per client IP, shared by every
// connection from that IP. A bucket is dropped when its last connection
// closes.
type clientLimiters struct {
	mu       sync.Mutex
	perSec   int
	limiters map[string]*clientLimiter
}

type clientLimiter struct {
	limiter *rate.Limiter
	refs    int
}

func newClientLimiters(perSec int) *clientLimiters {
	return &clientLimiters{
		perSec:   perSec,
		limiters: make(map[string]*clientLimiter),
	}
}

// acquire returns the limiter for ip and registers one more user of it.
func (l *clientLimiters) acquire(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.limiters[ip]
	if !ok {
		// Burst equals the per-second rate.
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.perSec), l.perSec)}
		l.limiters[ip] = cl
	}
	cl.refs++
	return cl.limiter
}

// release drops one user of the limiter for ip.
func (l *clientLimiters) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.limiters[ip]
	if !ok {
		return
	}
	cl.refs--
	if cl.refs <= 0 {
		delete(l.limiters, ip)
	}
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// clientIP returns the host part of addr, or the whole string when addr has
// no port.
func clientIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
