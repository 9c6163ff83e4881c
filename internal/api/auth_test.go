package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"healthops/internal/config"
)

func authConfig() *config.APIConfig {
	return &config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "reader", Extra: "r-extra", Permissions: []string{permReadViews}},
				{Key: "admin", Extra: "a-extra"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 200},
	}
}

func TestHTTPAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := NewHTTPAuth(authConfig()).Wrap(ok)

	call := func(method, path, key, extra string) int {
		req := httptest.NewRequest(method, path, nil)
		if key != "" {
			req.Header.Set("x-api-key", key)
			req.Header.Set("x-api-extra", extra)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("health is open", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call(http.MethodGet, "/healthz", "", ""))
	})

	t.Run("missing and invalid keys", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/v1/contexts", "", ""))
		assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/v1/contexts", "ghost", "x"))
		assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/v1/contexts", "reader", "wrong"))
	})

	t.Run("permissions", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call(http.MethodGet, "/api/v1/views/camp_schedule", "reader", "r-extra"))
		assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/api/v1/camps", "reader", "r-extra"))
		assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/api/v1/bookings/x/payment", "reader", "r-extra"))
		assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/api/v1/views/reports/export", "reader", "r-extra"))
		assert.Equal(t, http.StatusNoContent, call(http.MethodPost, "/api/v1/camps", "admin", "a-extra"))
	})
}

func TestRateLimit(t *testing.T) {
	cfg := authConfig()
	cfg.Auth.Enabled = false
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 2}
	h := NewHTTPAuth(cfg).Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/contexts", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contexts", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "limits are per client")
}

func TestRateLimitPerPermission(t *testing.T) {
	cfg := authConfig()
	cfg.Auth.Enabled = false
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 100, ExportRPS: 0.001, Burst: 1}
	h := NewHTTPAuth(cfg).Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send(http.MethodPost, "/api/v1/views/camp_schedule/export"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/v1/views/camp_schedule/export"))
	assert.Equal(t, http.StatusNoContent, send(http.MethodGet, "/api/v1/views/camp_schedule"), "reads have their own budget")
}

func TestRateLimiterDefaults(t *testing.T) {
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 2})
	assert.True(t, l.enabled())
	assert.Equal(t, 5, l.cfg.Burst)
	assert.Equal(t, 2.0, l.cfg.ExportRPS)

	assert.False(t, newRateLimiter(config.APIRateLimitConfig{}).enabled())
}
