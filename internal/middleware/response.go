package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON error envelope of every non-2xx response. The
// middleware and the handlers share it so clients see one shape
// whether a request is rejected before or after routing.
type ErrorBody struct {
	Timestamp string            `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// ErrorJSON writes the envelope for a status + message pair.
func ErrorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorBody{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	})
}
