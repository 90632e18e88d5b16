package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(rl *ClientRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/lookup", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func lookupFrom(router *gin.Engine, addr string) int {
	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestClientRateLimiterExhaustsBucket(t *testing.T) {
	rl := NewClientRateLimiter(0.001, 2)
	router := newLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, lookupFrom(router, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, lookupFrom(router, "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, lookupFrom(router, "10.0.0.1:1002"))

	// buckets are per client
	assert.Equal(t, http.StatusOK, lookupFrom(router, "10.0.0.2:1000"))
}

func TestClientRateLimiterCleanupEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewClientRateLimiter(0.001, 1)
	rl.now = func() time.Time { return now }
	router := newLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, lookupFrom(router, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, lookupFrom(router, "10.0.0.1:1000"))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, lookupFrom(router, "10.0.0.2:1000"))

	now = now.Add(rl.ttl)
	rl.Cleanup()
	rl.mu.Lock()
	_, stale := rl.clients["10.0.0.1"]
	_, recent := rl.clients["10.0.0.2"]
	rl.mu.Unlock()
	assert.False(t, stale)
	assert.True(t, recent)

	// an evicted client starts over with a full bucket
	assert.Equal(t, http.StatusOK, lookupFrom(router, "10.0.0.1:1000"))
}
