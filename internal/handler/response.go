package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"biketrail/internal/repository"
	"biketrail/internal/service"
	"biketrail/internal/tracking"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoActiveRide):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidRadius),
		errors.Is(err, service.ErrInvalidSource),
		errors.Is(err, service.ErrInvalidProfile):
		return http.StatusBadRequest

	// Session state conflicts
	case errors.Is(err, tracking.ErrAlreadyActive),
		errors.Is(err, tracking.ErrNotActive),
		errors.Is(err, tracking.ErrNotTracking),
		errors.Is(err, tracking.ErrNotPaused),
		errors.Is(err, service.ErrRideNotStopped),
		errors.Is(err, service.ErrRideLocked),
		errors.Is(err, service.ErrNotPushSource):
		return http.StatusConflict

	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// formatTime renders a timestamp in RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
