// README: Finder session state, status taxonomy and the render snapshot served to clients.
package finder

import (
	"errors"
	"strings"

	"qibla/internal/modules/location"
	"qibla/internal/types"
)

type Status string

const (
	StatusIdle          Status = "idle"
	StatusLocating      Status = "locating"
	StatusReady         Status = "ready"
	StatusLocationError Status = "location_error"
	StatusCameraActive  Status = "camera_active"
	StatusCameraError   Status = "camera_error"
)

var (
	ErrClosed          = errors.New("finder session closed")
	ErrNotReady        = errors.New("qibla direction not computed yet")
	ErrSessionNotFound = errors.New("finder session not found")
	// ErrCameraInterrupted reports a camera start cancelled by a stop or a
	// newer start while the device was opening.
	ErrCameraInterrupted = errors.New("camera start interrupted")
)

// User-facing messages.
const (
	msgLocationUnsupported = "Geolocation is not supported by your device."
	msgLocationDenied      = "Unable to retrieve your location. Please enter your city manually."
	msgCameraUnsupported   = "Camera is not supported on this device."
	msgCameraDenied        = "Unable to access the camera. Please allow camera access and try again."
	msgCameraBusy          = "The camera is in use by another session. Stop it there and try again."
	msgSensorUnavailable   = "Compass is unavailable. The live overlay is hidden; the numeric direction is still valid."
)

func cityNotFoundMessage() string {
	return "City not found. Try: " + strings.Join(location.KnownCities(), ", ")
}

// View is the render snapshot of one finder session. RelativeAngle is nil
// unless both a bearing and a heading exist.
type View struct {
	ID            string       `json:"id"`
	Status        Status       `json:"status"`
	Message       string       `json:"message,omitempty"`
	Warning       string       `json:"warning,omitempty"`
	Location      *types.Point `json:"location,omitempty"`
	PlaceName     string       `json:"place_name,omitempty"`
	Source        string       `json:"source,omitempty"`
	Bearing       *int         `json:"bearing_degrees,omitempty"`
	BearingExact  *float64     `json:"bearing_exact,omitempty"`
	Cardinal      string       `json:"cardinal,omitempty"`
	DistanceKm    *int         `json:"distance_km,omitempty"`
	Heading       *float64     `json:"heading_degrees,omitempty"`
	RelativeAngle *float64     `json:"relative_angle,omitempty"`
	CameraActive  bool         `json:"camera_active"`
}
