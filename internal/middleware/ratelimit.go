package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
}

// Decision is the outcome of one Limiter check
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Duration
}

// Limiter counts requests per client
type Limiter interface {
	Allow(ctx context.Context, clientID string) (Decision, error)
}

// RedisLimiter is a fixed window counter shared through Redis, so several
// browser processes can sit behind one budget
type RedisLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

// NewRedisLimiter creates a Limiter backed by client
func NewRedisLimiter(client *redis.Client, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{client: client, config: config}
}

func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	key := fmt.Sprintf("%s:%s", l.config.KeyPrefix, clientID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		l.client.Expire(ctx, key, l.config.Window)
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.config.Window
	}

	remaining := l.config.RequestsPerWindow - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.config.RequestsPerWindow),
		Remaining: remaining,
		Reset:     ttl,
	}, nil
}

// LocalLimiter keeps a token bucket per client in process memory. A bucket
// idle for a full window would be refilled anyway, so it is dropped.
type LocalLimiter struct {
	mu        sync.Mutex
	config    RateLimitConfig
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates an in-process Limiter refilling RequestsPerWindow
// tokens per Window
func NewLocalLimiter(config RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, clientID string) (Decision, error) {
	every := l.config.Window / time.Duration(l.config.RequestsPerWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.config.Window {
		l.sweep(now)
	}

	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), l.config.RequestsPerWindow)}
		l.buckets[clientID] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Remaining: remaining,
		Reset:     every,
	}, nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.config.Window {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}

// clientKey identifies the caller by host, so connections from one address
// on different ports share a budget
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects clients that exceed their request budget with 429
func RateLimitMiddleware(limiter Limiter, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientKey(r)

			decision, err := limiter.Allow(r.Context(), clientID)
			if err != nil {
				logger.Error("Rate limit check failed", zap.Error(err), zap.String("client_id", clientID))
				// On limiter error, allow request to proceed
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(decision.Reset).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(decision.Reset.Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
