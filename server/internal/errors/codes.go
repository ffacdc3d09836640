package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures of graph operations.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a missing participant or connection.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates the connection already exists.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeValidation indicates invalid input parameters.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeConsistencyFailure indicates the local value update failed and the mutation was rolled back.
	ErrCodeConsistencyFailure ErrorCode = "CONSISTENCY_FAILURE"
	// ErrCodeJobChunkFailure indicates a recalculation chunk failed after retries.
	ErrCodeJobChunkFailure ErrorCode = "JOB_CHUNK_FAILURE"
	// ErrCodeRateLimitExceeded indicates the client exceeded its request rate.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal is used for uncoded errors.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error is a coded error returned by the network service and the recalculation job.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func ConsistencyFailure(msg string, cause error) *Error {
	return &Error{Code: ErrCodeConsistencyFailure, Message: msg, Cause: cause}
}

func JobChunkFailure(msg string, cause error) *Error {
	return &Error{Code: ErrCodeJobChunkFailure, Message: msg, Cause: cause}
}

func RateLimitExceeded(msg string) *Error {
	return &Error{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// IsCode reports whether err or any error it wraps carries code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCodeFromError extracts the outermost error code.
// Returns the provided default code if err is not coded.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return defaultCode
}

// HTTPStatus maps a code to the response status of the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
