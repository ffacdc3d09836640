package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/netvalue/server/internal/errors"
)

func TestRateLimiterAllowBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// Separate bucket per key.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < DefaultBurst; i++ {
		require.True(t, rl.Allow("client"), "request %d", i)
	}
	assert.False(t, rl.Allow("client"))
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("old"))
	require.False(t, rl.Allow("old"))

	now = now.Add(idleLimiterTTL + time.Second)
	rl.Allow("new")
	assert.NotContains(t, rl.limits, "old")
	assert.Contains(t, rl.limits, "new")
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	serve := func() (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		return rec, handler(e.NewContext(req, rec))
	}

	rec, err := serve()
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = serve()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRateLimitExceeded))
}
