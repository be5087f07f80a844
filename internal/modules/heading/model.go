// README: Orientation events, the two vendor reading shapes, and normalized heading samples.
package heading

import (
	"errors"
	"math"
	"time"

	"qibla/internal/modules/qibla"
)

var (
	ErrSensorUnsupported      = errors.New("orientation sensor is not supported")
	ErrSensorPermissionDenied = errors.New("orientation sensor permission denied")
)

// OrientationEvent is the raw device orientation payload. Either field may be
// absent depending on the platform.
type OrientationEvent struct {
	// CompassHeading is the vendor-specific compass heading in degrees,
	// clockwise from north.
	CompassHeading *float64 `json:"compass_heading,omitempty"`
	// Alpha is the generic orientation angle, increasing counter-clockwise.
	Alpha *float64 `json:"alpha,omitempty"`
}

// Reading is one of VendorCompass or GenericOrientation.
type Reading interface {
	isReading()
}

// VendorCompass is a heading reported directly in compass convention.
type VendorCompass struct {
	Degrees float64
}

// GenericOrientation is a heading derived from the orientation alpha angle.
type GenericOrientation struct {
	Alpha float64
}

func (VendorCompass) isReading()      {}
func (GenericOrientation) isReading() {}

// Sample is a normalized compass heading in [0,360).
type Sample struct {
	CompassDegrees float64   `json:"compass_degrees"`
	At             time.Time `json:"at"`
}

// Classify picks the reading shape for ev. A numeric vendor heading wins over
// alpha; an event with neither is discarded.
func Classify(ev OrientationEvent) (Reading, bool) {
	if numeric(ev.CompassHeading) {
		return VendorCompass{Degrees: *ev.CompassHeading}, true
	}
	if numeric(ev.Alpha) {
		return GenericOrientation{Alpha: *ev.Alpha}, true
	}
	return nil, false
}

// Normalize converts a reading into compass degrees in [0,360).
func Normalize(r Reading) float64 {
	switch v := r.(type) {
	case VendorCompass:
		return qibla.NormalizeDegrees(v.Degrees)
	case GenericOrientation:
		return qibla.NormalizeDegrees(360 - v.Alpha)
	default:
		return 0
	}
}

func numeric(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
