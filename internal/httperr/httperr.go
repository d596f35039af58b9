// Package httperr renders the structured error body used by every endpoint:
// {"error":{"code","message","details"?},"request_id"}. The core packages
// raise plain errors; translation to HTTP happens only here and in the
// handlers.
package httperr

import (
	"github.com/labstack/echo/v4"
)

type body struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes an error response with the given status, machine code and
// human message.
func JSON(c echo.Context, status int, code, message string) error {
	return WithDetails(c, status, code, message, nil)
}

// WithDetails writes an error response carrying a field-level details
// payload (used for validation failures).
func WithDetails(c echo.Context, status int, code, message string, details any) error {
	return c.JSON(status, body{
		Error:     errorBody{Code: code, Message: message, Details: details},
		RequestID: requestID(c),
	})
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
