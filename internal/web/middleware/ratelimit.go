package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleClientTTL is how long an idle client's bucket is kept.
const idleClientTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket. A client may burst up to the
// per-minute allowance, which then refills evenly over the minute.
type RateLimiter struct {
	perMinute int

	mu      sync.Mutex
	clients map[string]*clientLimiter

	// deny writes the rejection. Retry-After is already set.
	deny http.HandlerFunc

	stop chan struct{}
	once sync.Once
}

// NewRateLimiter returns a limiter allowing perMinute requests per client IP.
// deny renders rejected requests; nil writes a JSON error. Call Close to
// stop the background cleanup.
func NewRateLimiter(perMinute int, deny http.HandlerFunc) *RateLimiter {
	if deny == nil {
		deny = writeTooManyRequests
	}
	if perMinute < 1 {
		perMinute = 1
	}
	rl := &RateLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*clientLimiter),
		deny:      deny,
		stop:      make(chan struct{}),
	}
	go rl.cleanup(time.Minute)
	return rl
}

// Allow reports whether the client identified by key may proceed. When it
// may not, retry is how long until a token is available.
func (rl *RateLimiter) Allow(key string) (ok bool, retry time.Duration) {
	rl.mu.Lock()
	cl, exists := rl.clients[key]
	if !exists {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute),
		}
		rl.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	reservation := cl.limiter.Reserve()
	if !reservation.OK() {
		return false, time.Minute
	}
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return false, delay
	}
	return true, 0
}

// Handler rate limits next by client IP.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := rl.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			rl.deny(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep removes clients idle for longer than maxIdle and returns how many
// were removed.
func (rl *RateLimiter) Sweep(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, cl := range rl.clients {
		if time.Since(cl.lastSeen) > maxIdle {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Close stops the background cleanup. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Sweep(idleClientTTL)
		}
	}
}

// clientIP returns the host part of RemoteAddr. TrustedRealIP has already
// replaced RemoteAddr when the request came through a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "rate limit exceeded",
		"code":  "RATE001",
	})
}
