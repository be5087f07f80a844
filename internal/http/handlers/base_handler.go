// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qibla/internal/modules/camera"
	"qibla/internal/modules/finder"
	"qibla/internal/modules/location"
)

type errorResponse struct {
	Error string       `json:"error"`
	View  *finder.View `json:"view,omitempty"`
}

// isValidID ensures session IDs are UUIDs (matches the registry generator).
func isValidID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, location.ErrCityNotFound), errors.Is(err, finder.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, location.ErrLocationUnsupported):
		return http.StatusServiceUnavailable
	case errors.Is(err, location.ErrLocationDenied):
		return http.StatusUnprocessableEntity
	case errors.Is(err, camera.ErrCameraUnsupported), errors.Is(err, camera.ErrCameraPermission),
		errors.Is(err, camera.ErrCameraBusy), errors.Is(err, finder.ErrCameraInterrupted),
		errors.Is(err, finder.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, finder.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps module errors to status codes. When the failing
// operation produced a view (status and user message) it is returned too.
func writeDomainError(c *gin.Context, err error, view *finder.View) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	if view != nil && view.Message != "" {
		msg = view.Message
	}
	writeJSON(c, status, errorResponse{Error: msg, View: view})
}
