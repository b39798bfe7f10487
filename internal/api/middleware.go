package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/nhle/buildfast/internal/apperr"
	"github.com/nhle/buildfast/internal/telemetry"
)

// slogFormatter feeds chi's request logger into slog.
type slogFormatter struct {
	log *slog.Logger
}

func (f slogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &slogEntry{
		log: f.log.With(
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		),
	}
}

type slogEntry struct {
	log *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	e.log.Log(context.Background(), level, "request", "status", status, "bytes", bytes, "elapsed", elapsed)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("panic", "panic", v, "stack", string(stack))
}

// observe records request latency under the matched route pattern.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		telemetry.HTTPDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// limiterIdle is how long a bucket goes unused before it is dropped. A
// bucket refills completely within a minute, so a dropped one is
// indistinguishable from a new one.
const limiterIdle = time.Minute

// userLimiter hands out one token bucket per user.
type userLimiter struct {
	perMinute int
	now       func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newUserLimiter(perMinute int) *userLimiter {
	return &userLimiter{
		perMinute: perMinute,
		now:       time.Now,
		limiters:  make(map[string]*limiterEntry),
	}
}

func (l *userLimiter) allow(userID string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}

	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= limiterIdle {
		l.sweep(now)
	}
	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.limiters[userID] = e
	}
	e.seen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// sweep drops buckets idle for limiterIdle. Callers hold l.mu.
func (l *userLimiter) sweep(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.seen) >= limiterIdle {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

// rateLimit throttles chat turns per signed-in user.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(currentUser(r)) {
			telemetry.RateLimited.Inc()
			s.writeDomainError(w, r, apperr.RateLimited("Too many chat requests, try again shortly"), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
