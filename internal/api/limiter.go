package api

import (
	"net"
	"net/http"
	"sync"

	"unitbook/internal/config"

	"golang.org/x/time/rate"
)

// rateLimiter ограничивает частоту запросов на клиента. Клиент определяется
// по API-ключу, а при его отсутствии — по адресу.
type rateLimiter struct {
	cfg      *config.APIConfig
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRateLimiter(cfg *config.APIConfig) *rateLimiter {
	return &rateLimiter{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *rateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.cfg.RateLimit.RPS), rl.cfg.RateLimit.Burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *rateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(rl.cfg.Auth.HeaderAPIKey)
		if key == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			key = host
		}

		if !rl.limiterFor(key).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
