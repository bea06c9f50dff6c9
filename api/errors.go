// Package api implements the /actors/v2 HTTP surface of the abaco control
// plane: actor registration and lifecycle, message intake, execution
// inspection, worker management and permission grants.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/auth"
	"github.com/julianpistorius/abaco/stores"
	"github.com/julianpistorius/abaco/version"
)

// Error is a handler error carrying the HTTP status it maps to. Handlers
// raise these; the error handler converts them to the error envelope.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ResourceError reports an absent actor, execution, worker or permission
// record (404).
func ResourceError(msg string) *Error {
	return &Error{Code: http.StatusNotFound, Message: msg}
}

// ValidationError reports a missing required field, a type mismatch or an
// invalid enum value (400).
func ValidationError(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: msg}
}

// DAOError reports a body that could not be deserialized or an operation
// conflicting with the record's shape (400).
func DAOError(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: msg}
}

// PermissionError reports an authorization failure (403).
func PermissionError(msg string) *Error {
	return &Error{Code: http.StatusForbidden, Message: msg}
}

// UnauthorizedError reports a request with no usable identity (401).
func UnauthorizedError(msg string) *Error {
	return &Error{Code: http.StatusUnauthorized, Message: msg}
}

// errorEnvelope is the uniform error body.
type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// HTTPErrorHandler converts every handler error into the error envelope.
// Unclassified errors surface as 500; channel publishes that fail after a
// store mutation land here and the caller retries (at-least-once intake).
func HTTPErrorHandler(logger *logrus.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := "internal error"

		var apiErr *Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
			code = apiErr.Code
			message = apiErr.Message
		case errors.Is(err, auth.ErrForbidden):
			code = http.StatusForbidden
			message = "Not authorized."
		case errors.Is(err, stores.ErrNotFound):
			code = http.StatusNotFound
			message = "Resource not found."
		case errors.As(err, &httpErr):
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
		default:
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Error("unhandled error")
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorEnvelope{
			Status:  "error",
			Message: message,
			Version: version.Get(),
		})
	}
}
