package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/service"
	"github.com/harrisonrobin/dayboard/pkg/store/sqlstore"
)

const secret = "test-secret"

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "dayboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.Discard()
	svcs := service.New(st, log, service.Options{Location: time.UTC, CalendarOwner: "owner"})
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
		cfg.RateBurst = 1000
	}
	return New(cfg, svcs, log)
}

func token(t *testing.T, sub, role string, ttl time.Duration) string {
	t.Helper()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, s *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret})
	rec := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dayboard_http_requests_total")
}

func TestAuthRejectsBadTokens(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret})

	rec := do(t, s, http.MethodGet, "/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", gjson.Get(rec.Body.String(), "error.code").String())

	rec = do(t, s, http.MethodGet, "/tasks", token(t, "ann", "", -time.Minute), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "ann", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("wrong"))
	require.NoError(t, err)
	rec = do(t, s, http.MethodGet, "/tasks", other, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/tasks", token(t, "ann", "", time.Hour), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret})
	ann := token(t, "ann", "", time.Hour)

	rec := do(t, s, http.MethodPost, "/tasks", ann, map[string]any{
		"title": "Write docs", "priority": "high", "estimate": "1h30m", "tags": []string{"docs"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := gjson.Get(rec.Body.String(), "id").String()
	assert.Equal(t, int64(90), gjson.Get(rec.Body.String(), "estimate_minutes").Int())

	rec = do(t, s, http.MethodPost, "/tasks", ann, map[string]any{"title": "x", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPatch, "/tasks/"+id, ann, map[string]any{"description": "api reference"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Write docs", gjson.Get(rec.Body.String(), "title").String())

	rec = do(t, s, http.MethodGet, "/tasks/"+id, token(t, "bob", "", time.Hour), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", gjson.Get(rec.Body.String(), "error.code").String())

	rec = do(t, s, http.MethodPost, "/tasks/"+id+"/complete", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(30), gjson.Get(rec.Body.String(), "award.points").Int())

	rec = do(t, s, http.MethodGet, "/energy", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(30), gjson.Get(rec.Body.String(), "total").Int())
	assert.Equal(t, "Red", gjson.Get(rec.Body.String(), "level.name").String())

	rec = do(t, s, http.MethodGet, "/tasks?status=completed", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "#").Int())

	rec = do(t, s, http.MethodGet, "/tasks?status=done", ann, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/tasks/"+id, ann, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/tasks/"+id, ann, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleAndCalendar(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret})
	ann := token(t, "ann", "", time.Hour)

	rec := do(t, s, http.MethodPost, "/tasks", ann, map[string]any{
		"title": "Dentist", "due": "2026-03-02T11:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/schedule?date=2026-03-02", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03-02", gjson.Get(rec.Body.String(), "date").String())
	assert.Equal(t, "Dentist", gjson.Get(rec.Body.String(), "blocks.0.title").String())

	rec = do(t, s, http.MethodGet, "/calendar?from=2026-03-01&to=2026-03-03", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "task", gjson.Get(rec.Body.String(), "0.kind").String())

	rec = do(t, s, http.MethodGet, "/calendar?from=yesterday", ann, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/calendar/sync", ann, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodPost, "/calendar/sync", token(t, "owner", "", time.Hour), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminInbox(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret})
	admin := token(t, "support", RoleAdmin, time.Hour)

	rec := do(t, s, http.MethodGet, "/admin/emails", token(t, "ann", "", time.Hour), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodPost, "/admin/emails", admin, map[string]any{
		"from_email": "cara@example.com", "from_name": "Cara", "subject": "App crashes",
		"body": "The app crashes with an error on login.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := gjson.Get(rec.Body.String(), "id").String()
	assert.Equal(t, "technical", gjson.Get(rec.Body.String(), "category").String())

	rec = do(t, s, http.MethodPost, "/admin/generate-draft", admin, map[string]any{"email_id": id, "tone": "formal"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(gjson.Get(rec.Body.String(), "draft").String(), "Dear Cara,"))

	rec = do(t, s, http.MethodPost, "/admin/send-email", admin, map[string]any{"email_id": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "replied", gjson.Get(rec.Body.String(), "status").String())

	rec = do(t, s, http.MethodPatch, "/admin/emails/"+id, admin, map[string]any{"status": "closed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", gjson.Get(rec.Body.String(), "status").String())

	rec = do(t, s, http.MethodGet, "/admin/customers/cara@example.com", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "ticket_count").Int())

	rec = do(t, s, http.MethodGet, "/admin/customers", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "#").Int())

	rec = do(t, s, http.MethodDelete, "/admin/emails/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDevModeWithoutSecret(t *testing.T) {
	s := newTestServer(t, Config{DevUser: "me"})
	rec := do(t, s, http.MethodPost, "/energy", "", map[string]any{"points": 15, "note": "walk"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "me", gjson.Get(rec.Body.String(), "user_id").String())

	rec = do(t, s, http.MethodGet, "/admin/emails", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret, RateLimit: 1, RateBurst: 2})
	ann := token(t, "ann", "", time.Hour)

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, s, http.MethodGet, "/energy/history", ann, nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other callers have their own bucket.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/energy/history", token(t, "bob", "", time.Hour), nil).Code)
}

func TestRateLimitRejectedTokensByAddress(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret, RateLimit: 1, RateBurst: 2})

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, s, http.MethodGet, "/tasks", "not-a-token", nil).Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/tasks", "", nil).Code)

	// A valid token from the same address is limited by user instead.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/tasks", token(t, "ann", "", time.Hour), nil).Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := newRateLimiter(1, 1, logger.Discard())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.allow("a")
	now = now.Add(time.Hour)
	rl.allow("b")
	rl.cleanup()
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "b")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret, AllowedOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, Config{JWTSecret: secret})
	rec := do(t, s, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", gjson.Get(rec.Body.String(), "error.code").String())
}
