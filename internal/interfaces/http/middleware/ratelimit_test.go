package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows up to the limit", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)

		assert.True(t, rl.Allow("client"))
		assert.True(t, rl.Allow("client"))
		assert.True(t, rl.Allow("client"))
		assert.False(t, rl.Allow("client"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)

		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.True(t, rl.Allow("b"))
	})

	t.Run("window reset refills tokens", func(t *testing.T) {
		rl := NewRateLimiter(1, 10*time.Millisecond)

		assert.True(t, rl.Allow("client"))
		assert.False(t, rl.Allow("client"))

		time.Sleep(15 * time.Millisecond)
		assert.True(t, rl.Allow("client"))
	})

	t.Run("remaining tracks tokens", func(t *testing.T) {
		rl := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, rl.Remaining("client"))
		rl.Allow("client")
		assert.Equal(t, 4, rl.Remaining("client"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("passes requests under the limit with headers", func(t *testing.T) {
		r := newMiddlewareTestRouter(RateLimit(NewRateLimiter(2, time.Minute)))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("returns 429 over the limit", func(t *testing.T) {
		r := newMiddlewareTestRouter(RateLimit(NewRateLimiter(1, time.Minute)))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
	})

	t.Run("tenant header separates buckets", func(t *testing.T) {
		r := newMiddlewareTestRouter(RateLimit(NewRateLimiter(1, time.Minute)))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Tenant-ID", "tenant-a")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Tenant-ID", "tenant-b")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	keyFunc := func(c *gin.Context) string {
		return c.GetHeader("X-API-Key")
	}
	r := newMiddlewareTestRouter(RateLimitByKey(NewRateLimiter(1, time.Minute), keyFunc))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-API-Key", "key-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
