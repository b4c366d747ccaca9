package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"ledger/internal/cache"
)

// Limiter gives every client its own token bucket. Buckets live in an LRU
// so idle clients are forgotten.
type Limiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.LRUCache[*rate.Limiter]
	onLimit func()
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerSecond float64
	Burst             int
	MaxClients        int
	IdleTTL           time.Duration
	// OnLimit is called for every rejected request.
	OnLimit func()
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
		MaxClients:        10000,
		IdleTTL:           10 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter. Zero fields take DefaultConfig values.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}

	return &Limiter{
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   config.Burst,
		clients: cache.NewLRUCache[*rate.Limiter](config.MaxClients, config.IdleTTL),
		onLimit: config.OnLimit,
	}
}

func (rl *Limiter) bucket(clientIP string) *rate.Limiter {
	return rl.clients.GetOrCreate(clientIP, func() *rate.Limiter {
		return rate.NewLimiter(rl.limit, rl.burst)
	})
}

// Allow checks if a request from the given IP should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	return rl.bucket(clientIP).Allow()
}

// retryAfter is the whole number of seconds until clientIP may send again.
func (rl *Limiter) retryAfter(clientIP string) int {
	r := rl.bucket(clientIP).Reserve()
	defer r.Cancel()
	return int(math.Max(1, math.Ceil(r.Delay().Seconds())))
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// Cache exposes the client cache so a cache.Manager can clean it.
func (rl *Limiter) Cache() cache.Cleaner {
	return rl.clients
}

// Middleware creates HTTP middleware for rate limiting. Only methods in
// methods are limited; none means every request.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	limited := func(m string) bool {
		if len(methods) == 0 {
			return true
		}
		for _, x := range methods {
			if x == m {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limited(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			clientIP := extractIP(r)
			if rl.Allow(clientIP) {
				next.ServeHTTP(w, r)
				return
			}

			if rl.onLimit != nil {
				rl.onLimit()
			}
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(clientIP)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
