package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimiter keeps a token bucket per caller. Callers are keyed by the
// authenticated identity, or by peer address for anonymous calls.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*limiterEntry
	sweptAt  time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerSecond sustained calls with the given burst
// per caller. Buckets idle for longer than ttl are dropped; ttl <= 0 keeps them forever.
func NewRateLimiter(requestsPerSecond float64, burst int, ttl time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

// Allow reports whether key may make a call now and consumes a token if so.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	rl.sweep(now)
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	rl.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Len returns the number of tracked callers.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// sweep drops idle buckets at most once per ttl. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if rl.ttl <= 0 || now.Sub(rl.sweptAt) < rl.ttl {
		return
	}
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.ttl {
			delete(rl.limiters, key)
		}
	}
	rl.sweptAt = now
}

// CallerKey returns the rate limit key of an incoming call.
func CallerKey(ctx context.Context) string {
	if identity := IdentityFromContext(ctx); identity != "" {
		return "id:" + identity
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "anonymous"
}

func (rl *RateLimiter) check(ctx context.Context, method string) error {
	if rl.Allow(CallerKey(ctx)) {
		return nil
	}
	return status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", method)
}

// UnaryServerInterceptor rejects calls over the limit with ResourceExhausted.
// It must run after authentication so identities are known.
// A nil limiter lets every call through.
func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if rl != nil {
			if err := rl.check(ctx, info.FullMethod); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming variant of UnaryServerInterceptor.
func (rl *RateLimiter) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if rl != nil {
			if err := rl.check(ss.Context(), info.FullMethod); err != nil {
				return err
			}
		}
		return handler(srv, ss)
	}
}
