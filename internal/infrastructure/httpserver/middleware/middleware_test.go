package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/purrfectstays/waitlist-api/internal/infrastructure/httpserver/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware_MissingTokenReturns401(t *testing.T) {
	e := echo.New()
	m := middleware.NewAuthMiddleware(testSecret, logrus.New())
	handler := m.RequireServiceToken()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, htErr.Code)
}

func TestAuthMiddleware_WrongSecretReturns401(t *testing.T) {
	e := echo.New()
	m := middleware.NewAuthMiddleware(testSecret, logrus.New())
	handler := m.RequireServiceToken()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, htErr.Code)
}

func TestAuthMiddleware_ValidTokenPasses(t *testing.T) {
	e := echo.New()
	m := middleware.NewAuthMiddleware(testSecret, logrus.New())
	handler := m.RequireServiceToken()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

type counterMock struct {
	count int
	err   error
}

func (m *counterMock) IncrementWindow(ctx context.Context, client string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.err != nil {
		return 0, time.Time{}, m.err
	}
	m.count++
	return m.count, time.Now().Truncate(window), nil
}

func rateLimitHandler(counter middleware.RateLimitCounter, limit int) echo.HandlerFunc {
	m := middleware.NewRateLimitMiddleware(counter, &middleware.RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Minute,
		KeyPrefix:         "test",
	}, logrus.New())
	return m.Handler()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func TestRateLimitMiddleware_SetsHeadersAndLimits(t *testing.T) {
	e := echo.New()
	handler := rateLimitHandler(&counterMock{}, 2)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, handler(c))
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, fmt.Sprintf("%d", 2-(i+1)), rec.Header().Get("X-RateLimit-Remaining"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, htErr.Code)
}

func TestRateLimitMiddleware_FailsOpenOnCounterError(t *testing.T) {
	e := echo.New()
	handler := rateLimitHandler(&counterMock{err: fmt.Errorf("redis down")}, 1)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, handler(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware_NilCounterPassesThrough(t *testing.T) {
	e := echo.New()
	m := middleware.NewRateLimitMiddleware(nil, nil, nil)
	handler := m.Handler()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
