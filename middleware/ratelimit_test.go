package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariebrainware/telemed-api/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	setGinTestMode()
	r := gin.New()
	r.Use(RateLimiter(cfg))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return r
}

func hit(r *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterLocalFallback(t *testing.T) {
	config.SetRedisClientForTest(nil)
	r := newRateLimitedRouter(RateLimitConfig{Limit: 3, Window: time.Hour})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "192.168.1.1:1234"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "192.168.1.1:1234"))
	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, hit(r, "192.168.1.2:1234"))
}

func TestRateLimiterDefaultConfig(t *testing.T) {
	config.SetRedisClientForTest(nil)
	r := newRateLimitedRouter(RateLimitConfig{})
	for i := 0; i < defaultRateLimit; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1:1"))
}

func TestRateLimiterWithRedis(t *testing.T) {
	mock := setupRedisMock(t)
	window := 15 * time.Minute
	key := rateLimitKey("192.168.1.1", "/test")
	r := newRateLimitedRouter(RateLimitConfig{Limit: 2, Window: window})

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, window).SetVal(true)
	assert.Equal(t, http.StatusOK, hit(r, "192.168.1.1:1234"))

	mock.ExpectIncr(key).SetVal(3)
	mock.ExpectExpire(key, window).SetVal(true)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "192.168.1.1:1234"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterRedisErrorFallsBackToLocal(t *testing.T) {
	mock := setupRedisMock(t)
	window := time.Hour
	key := rateLimitKey("192.168.1.9", "/test")
	r := newRateLimitedRouter(RateLimitConfig{Limit: 1, Window: window})

	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
	mock.ExpectExpire(key, window).SetErr(errors.New("connection refused"))
	assert.Equal(t, http.StatusOK, hit(r, "192.168.1.9:1"))

	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
	mock.ExpectExpire(key, window).SetErr(errors.New("connection refused"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "192.168.1.9:1"))
}

func TestResetRateLimit(t *testing.T) {
	config.SetRedisClientForTest(nil)
	assert.Error(t, ResetRateLimit("192.168.1.1", "/test"))

	mock := setupRedisMock(t)
	mock.ExpectDel(rateLimitKey("192.168.1.1", "/test")).SetVal(1)
	assert.NoError(t, ResetRateLimit("192.168.1.1", "/test"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func newLoginRouter(cfg RateLimitConfig) *gin.Engine {
	setGinTestMode()
	r := gin.New()
	r.Use(RateLimiter(cfg))
	r.POST("/login", func(c *gin.Context) {
		if c.Query("ok") == "1" {
			c.JSON(http.StatusOK, gin.H{"message": "welcome"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
	})
	return r
}

func login(r *gin.Engine, ok bool) int {
	path := "/login"
	if ok {
		path += "?ok=1"
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "10.1.1.1:1"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterResetOnSuccessLocal(t *testing.T) {
	config.SetRedisClientForTest(nil)
	r := newLoginRouter(RateLimitConfig{Limit: 2, Window: time.Hour, ResetOnSuccess: true})

	assert.Equal(t, http.StatusUnauthorized, login(r, false))
	assert.Equal(t, http.StatusOK, login(r, true))
	assert.Equal(t, http.StatusUnauthorized, login(r, false))
	assert.Equal(t, http.StatusUnauthorized, login(r, false))
	assert.Equal(t, http.StatusTooManyRequests, login(r, false))
}

func TestRateLimiterResetOnSuccessRedis(t *testing.T) {
	mock := setupRedisMock(t)
	window := time.Hour
	key := rateLimitKey("10.1.1.1", "/login")
	r := newLoginRouter(RateLimitConfig{Limit: 2, Window: window, ResetOnSuccess: true})

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, window).SetVal(true)
	assert.Equal(t, http.StatusUnauthorized, login(r, false))

	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectExpire(key, window).SetVal(true)
	mock.ExpectDel(key).SetVal(1)
	assert.Equal(t, http.StatusOK, login(r, true))

	require.NoError(t, mock.ExpectationsWereMet())
}
