package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// requestLogger writes one access-log line per request and puts a
// request-scoped logger into the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLog := s.log.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		zl := reqLog.Zerolog()
		event := zl.Info()
		if status >= http.StatusInternalServerError {
			event = zl.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// limiterIdleTTL is how long a key's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

// keyRateLimiter keeps one token bucket per key. Buckets idle for longer
// than idleTTL are dropped, at most once per idleTTL.
type keyRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*keyLimiter
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type keyLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newKeyRateLimiter(perSecond float64, burst int) *keyRateLimiter {
	if burst < 1 {
		burst = max(1, int(perSecond))
	}
	return &keyRateLimiter{
		limiters: make(map[string]*keyLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
	}
}

func (l *keyRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if l.lastSweep.IsZero() {
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{lim: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastSeen = now
	return kl.lim
}

// sweep drops idle buckets. mu must be held.
func (l *keyRateLimiter) sweep(now time.Time) {
	for key, kl := range l.limiters {
		if now.Sub(kl.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Allow reports whether key may make a request now.
func (l *keyRateLimiter) Allow(key string) bool {
	return l.limiter(key).Allow()
}

// RetryAfter estimates when key gets its next token.
func (l *keyRateLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	kl, ok := l.limiters[key]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	res := kl.lim.Reserve()
	delay := res.Delay()
	res.Cancel()
	return delay
}

// ipRateLimiter limits by client address; RealIP runs first.
type ipRateLimiter struct {
	inner *keyRateLimiter
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{inner: newKeyRateLimiter(perSecond, burst)}
}

func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !l.inner.Allow(ip) {
			retry := l.inner.RetryAfter(ip)
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Kind: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
