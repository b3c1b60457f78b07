package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.POST("/login", rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func hit(router *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	router := limitedRouter(NewRateLimiter(10, 3))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "192.168.1.10"))
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	router := limitedRouter(NewRateLimiter(10, 3))

	for i := 0; i < 3; i++ {
		hit(router, "192.168.1.20")
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "192.168.1.20"))
}

func TestRateLimiter_TracksIPsIndependently(t *testing.T) {
	router := limitedRouter(NewRateLimiter(10, 1))

	assert.Equal(t, http.StatusOK, hit(router, "192.168.1.30"))
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "192.168.1.30"))
	assert.Equal(t, http.StatusOK, hit(router, "192.168.1.31"))
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	router := limitedRouter(rl)

	// Falls back to sane defaults instead of blocking everything
	assert.Equal(t, http.StatusOK, hit(router, "192.168.1.40"))
}
