package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/api/internal/admission"
	"authgate/api/internal/audit"
	"authgate/api/internal/metrics"
	"authgate/api/internal/models"
	"authgate/api/internal/security"
	"authgate/api/internal/session"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

func init() {
	gin.SetMode(gin.TestMode)
}

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Emit(ctx context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(context.Context, admission.Request) (admission.Decision, error) {
	return admission.Decision{}, errors.New("decision service unreachable")
}

type fixture struct {
	router    *gin.Engine
	tokens    *security.TokenService
	transport *session.Transport
	sink      *captureSink
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, evaluator Evaluator) *fixture {
	t.Helper()

	if evaluator == nil {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			_ = rdb.Close()
			mr.Close()
		})
		evaluator = admission.NewEngine(
			admission.NewBotDetector(nil),
			admission.NewShield(),
			admission.NewSlidingWindow(rdb),
			admission.ModeLive,
			"test",
		)
	}

	f := &fixture{
		tokens:    security.NewTokenService("middleware-secret", time.Hour),
		transport: session.NewTransport("token", false),
		sink:      &captureSink{},
		metrics:   metrics.New(),
	}

	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(zerolog.Nop()),
		Identify(f.tokens, f.transport),
		Admission(evaluator, f.sink, f.metrics, zerolog.Nop()),
	)
	r.GET("/resource", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/admin", RequireSession(), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	f.router = r
	return f
}

func (f *fixture) cookieFor(t *testing.T, role models.Role) *http.Cookie {
	t.Helper()
	token, _, err := f.tokens.Issue(security.ClaimsInput{ID: "u-" + string(role), Email: string(role) + "@example.com", Role: string(role)})
	require.NoError(t, err)
	return &http.Cookie{Name: "token", Value: token}
}

func (f *fixture) do(path string, ua string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:51000"
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAdmissionGuestRateLimit(t *testing.T) {
	f := newFixture(t, nil)

	for i := 1; i <= 10; i++ {
		rec := f.do("/resource", browserUA, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := f.do("/resource", browserUA, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Forbidden", body["error"])
	assert.Equal(t, "rate_limit", body["reason"])
	assert.NotContains(t, body, "limit")
	assert.NotContains(t, body, "remaining")

	require.Len(t, f.sink.events, 1)
	event := f.sink.events[0]
	assert.Equal(t, "rate_limit", event.Reason)
	assert.Equal(t, "guest", event.Role)
	assert.Equal(t, "203.0.113.7", event.IP)
	assert.Equal(t, browserUA, event.UserAgent)
	assert.Equal(t, "/resource", event.Path)
	assert.Equal(t, http.MethodGet, event.Method)
	assert.NotEmpty(t, event.RequestID)
}

func TestAdmissionAdminAllowedPastGuestLimit(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.cookieFor(t, models.RoleAdmin)

	for i := 1; i <= 11; i++ {
		rec := f.do("/resource", browserUA, cookie)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	}
	assert.Empty(t, f.sink.events)
}

func TestAdmissionInvalidCookieIsGuest(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("/resource", browserUA, &http.Cookie{Name: "token", Value: "forged.token.value"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
}

func TestAdmissionBot(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("/resource", "python-requests/2.31", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "bot", body["reason"])
	assert.Equal(t, "Automated requests are not allowed.", body["message"])

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "python-requests", f.sink.events[0].Rule)
}

func TestAdmissionShield(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("/resource?q=%3Cscript%3Ealert(1)%3C/script%3E", browserUA, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "shield", decode(t, rec)["reason"])
}

func TestAdmissionFailsClosed(t *testing.T) {
	f := newFixture(t, failingEvaluator{})

	rec := f.do("/resource", browserUA, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Forbidden", body["error"])
	assert.Equal(t, "Security check failed.", body["message"])
	assert.NotContains(t, body, "ok")
}

func TestRequireRoles(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("/admin", browserUA, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do("/admin", browserUA, f.cookieFor(t, models.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do("/admin", browserUA, f.cookieFor(t, models.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(true))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestAdmissionDryRunAllowsAndAudits(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	engine := admission.NewEngine(
		admission.NewBotDetector(nil),
		admission.NewShield(),
		admission.NewSlidingWindow(rdb),
		admission.ModeDryRun,
		"test",
	)
	f := newFixture(t, engine)

	rec := f.do("/resource", "curl/8.5.0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "bot", f.sink.events[0].Reason)
	assert.True(t, f.sink.events[0].DryRun)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDHeader)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "edge-7f3a:01")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "edge-7f3a:01", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "edge-7f3a:01", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "bad\nid")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad\nid", rec.Header().Get("X-Request-Id"))
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	preflight.Header.Set("Origin", "https://app.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	foreign := httptest.NewRequest(http.MethodGet, "/", nil)
	foreign.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, foreign)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.NotContains(t, rec.Body.String(), "boom")
}
