// Package apierror defines the error taxonomy of the API and its wire
// shape. Every non-2xx body is {"error": code, "error_description": text}
// with a stable machine code.
package apierror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curbfleet/mds-provider/internal/mds"
)

// Error is an API error carrying its HTTP status and machine code.
type Error struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Description }

// New builds an Error.
func New(status int, code, description string) *Error {
	return &Error{Status: status, Code: code, Description: description}
}

// Validation is a 400 with a caller-chosen code.
func Validation(code, description string) *Error {
	return New(http.StatusBadRequest, code, description)
}

// Authentication is the 401 for absent or failed credentials.
func Authentication() *Error {
	return New(http.StatusUnauthorized, "authentication_required", "valid credentials are required")
}

// Authorization is the 403 for a credential tied to another provider.
func Authorization(description string) *Error {
	return New(http.StatusForbidden, "invalid_provider", description)
}

// NotFound is a 404 with a caller-chosen code.
func NotFound(code, description string) *Error {
	return New(http.StatusNotFound, code, description)
}

// NotYetAvailable is the 202 returned while the requested window is still
// being loaded upstream.
func NotYetAvailable(description string) *Error {
	return New(http.StatusAccepted, "data_processing", description)
}

// RateLimited is the 429 returned when the service sheds load.
func RateLimited() *Error {
	return New(http.StatusTooManyRequests, "rate_limit_exceeded", "too many concurrent requests, retry shortly")
}

// DataSource is the 500 for warehouse failures.
func DataSource(description string) *Error {
	return New(http.StatusInternalServerError, "database_error", description)
}

// Internal is the opaque 500 for everything unexpected.
func Internal() *Error {
	return New(http.StatusInternalServerError, "internal_error", "an internal error occurred")
}

// Respond writes err in the wire shape. Errors outside the taxonomy become
// an opaque internal_error so nothing leaks. Error bodies carry the vendor
// media type like every other response.
func Respond(c *gin.Context, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal()
	}
	c.Header("Content-Type", mds.ContentType)
	c.JSON(apiErr.Status, apiErr)
}

// Abort writes err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal()
	}
	c.Header("Content-Type", mds.ContentType)
	c.AbortWithStatusJSON(apiErr.Status, apiErr)
}
