package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/server/internal/observability"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

// HTTPErrorHandler renders errors in the response envelope.
// Coded errors map to their status; echo errors keep theirs; anything else is a 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(c.Request().Context()).Error("request failed",
			observability.LogFieldErrorCode, body.Code,
			"error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, Response{Success: false, Error: body})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func errorResponse(err error) (int, *ErrorResponse) {
	var coded *errors.Error
	if pkgerrors.As(err, &coded) {
		return errors.HTTPStatus(coded.Code), &ErrorResponse{Code: string(coded.Code), Message: coded.Message}
	}

	var httpErr *echo.HTTPError
	if pkgerrors.As(err, &httpErr) {
		code := errors.ErrCodeInternal
		switch httpErr.Code {
		case http.StatusNotFound:
			code = errors.ErrCodeNotFound
		case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
			code = errors.ErrCodeValidation
		case http.StatusTooManyRequests:
			code = errors.ErrCodeRateLimitExceeded
		}
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
		return httpErr.Code, &ErrorResponse{Code: string(code), Message: message}
	}

	return http.StatusInternalServerError, &ErrorResponse{Code: string(errors.ErrCodeInternal), Message: "internal error"}
}
