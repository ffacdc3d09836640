package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/server/internal/observability"
)

func TestRequestContextLogsErrorCode(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	e := echo.New()
	e.Use(RequestContext(logger))
	e.GET("/missing", func(c echo.Context) error {
		return errors.NotFound("participant %s not found", "a")
	})
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "req-1", entry[observability.LogFieldRequestID])
	assert.Equal(t, string(errors.ErrCodeNotFound), entry[observability.LogFieldErrorCode])

	buf.Reset()
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])
	assert.NotContains(t, entry, observability.LogFieldErrorCode)
}
