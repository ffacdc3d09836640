package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/server/internal/observability"
)

// RequestContext attaches an observability.RequestContext to every request.
// An incoming X-Request-ID is kept, otherwise a new id is generated and echoed back.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx := observability.NewRequestContextWithID(logger, req.Header.Get(echo.HeaderXRequestID), req.Method+" "+c.Path())
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}
			attrs := []slog.Attr{
				slog.Int("status", c.Response().Status),
				slog.Int64(observability.LogFieldDuration, reqCtx.Duration().Milliseconds()),
			}
			if code := errors.GetCodeFromError(err, ""); code != "" {
				attrs = append(attrs, slog.String(observability.LogFieldErrorCode, string(code)))
			}
			reqCtx.Info("request completed", attrs...)
			return nil
		}
	}
}
