// Package ratelimit applies a fixed request window per client key.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultRequests = 120
	defaultWindow   = time.Minute
)

type Config struct {
	Requests int           // per window; 120 when zero
	Window   time.Duration // one minute when zero
}

// Limiter counts requests per key in windows that open on a key's first
// request. Idle keys are dropped by CleanExpired.
type Limiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	windows  map[string]*window
	rejected atomic.Int64
}

type window struct {
	start time.Time
	count int
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.Requests <= 0 {
		cfg.Requests = defaultRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	return &Limiter{
		requests: cfg.Requests,
		window:   cfg.Window,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Take counts one request for key. When the window is full it returns false
// and how long until the window reopens.
func (rl *Limiter) Take(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count >= rl.requests {
		rl.rejected.Add(1)
		return false, w.start.Add(rl.window).Sub(now)
	}
	w.count++
	return true, 0
}

func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.Take(key)
	return ok
}

// CleanExpired drops keys whose window has closed.
func (rl *Limiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
			removed++
		}
	}
	return removed
}

type Metrics struct {
	Rejected    int64 `json:"rejected"`
	ClientCount int64 `json:"clients"`
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	clients := int64(len(rl.windows))
	rl.mu.Unlock()
	return Metrics{Rejected: rl.rejected.Load(), ClientCount: clients}
}

// Middleware counts each request against key(r). Rejected requests get a
// Retry-After header and then onLimit, or a plain 429 when onLimit is nil.
func (rl *Limiter) Middleware(key func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := rl.Take(key(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retrySeconds rounds up so clients never retry before the window reopens.
func retrySeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
