package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/metrics"
)

const (
	RoleAdmin = "admin"

	requestIDHeader = "X-Request-ID"
)

type ctxKey int

const identityKey ctxKey = iota

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Claims are the bearer token claims: the subject is the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller stored by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// requestLogging tags the request with an id, stores a request scoped log
// entry in the context and logs the outcome.
func requestLogging(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			entry := log.WithField("request_id", requestID)
			r = r.WithContext(logger.WithEntry(r.Context(), entry))
			rw := wrap(w)

			defer func() {
				if p := recover(); p != nil {
					entry.WithField("panic", p).Error("handler panicked")
					if !rw.written {
						writeError(rw, r, log, apperr.New(apperr.KindInternal, "internal server error"))
					}
				}
				fields := logrus.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      rw.statusCode,
					"duration_ms": time.Since(start).Milliseconds(),
					"remote_ip":   r.RemoteAddr,
				}
				entry.WithFields(fields).Info("request completed")
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// instrument records request metrics under the matched route template.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.IncInFlight()
		defer metrics.DecInFlight()

		rw := wrap(w)
		next.ServeHTTP(rw, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}

// cors answers preflight requests and sets the allow headers for origins in
// allowed. "*" allows any origin.
func cors(allowed []string, next http.Handler) http.Handler {
	anyOrigin := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			anyOrigin = true
		}
		set[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (anyOrigin || set[origin]) {
			h := w.Header()
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
			h.Set("Access-Control-Expose-Headers", requestIDHeader)
			h.Set("Access-Control-Max-Age", "600")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticator validates HS256 bearer tokens. With no secret every request
// runs as devUser with the admin role. Rejected requests are charged to the
// caller's remote address on limiter.
type authenticator struct {
	secret  []byte
	devUser string
	limiter *rateLimiter
	log     *logrus.Logger
}

func (a *authenticator) reject(w http.ResponseWriter, r *http.Request, err error) {
	if a.limiter != nil && !a.limiter.admit(w, r, addrKey(r)) {
		return
	}
	writeError(w, r, a.log, err)
}

func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), Identity{UserID: a.devUser, Role: RoleAdmin})))
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			a.reject(w, r, apperr.Unauthorized("missing Authorization header"))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			a.reject(w, r, apperr.Unauthorized("invalid Authorization header format"))
			return
		}

		claims, err := a.validate(strings.TrimSpace(token))
		if err != nil {
			logger.FromContext(r.Context(), a.log).WithError(err).Warn("token validation failed")
			a.reject(w, r, apperr.Unauthorized("invalid or expired token"))
			return
		}
		id := Identity{UserID: claims.Subject, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func (a *authenticator) validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func requireAdmin(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok || !id.IsAdmin() {
				writeError(w, r, log, apperr.Forbidden("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter keeps one token bucket per caller: authenticated requests are
// keyed by user id, rejected ones by remote address.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perSecond, burst int, log *logrus.Logger) *rateLimiter {
	if burst < perSecond {
		burst = perSecond
	}
	return &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		log:      log,
		now:      time.Now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// cleanup forgets callers idle for longer than rl.idle.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// admit takes a token for key. Over budget it writes the 429 response and
// returns false.
func (rl *rateLimiter) admit(w http.ResponseWriter, r *http.Request, key string) bool {
	if rl.allow(key) {
		return true
	}
	logger.FromContext(r.Context(), rl.log).WithField("key", key).Warn("rate limit exceeded")
	w.Header().Set("Retry-After", "1")
	writeError(w, r, rl.log, apperr.New(apperr.KindRateLimited, "rate limit exceeded"))
	return false
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := addrKey(r)
		if id, ok := IdentityFrom(r.Context()); ok && id.UserID != "" {
			key = "user:" + id.UserID
		}
		if rl.admit(w, r, key) {
			next.ServeHTTP(w, r)
		}
	})
}

func addrKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
