// README: Location fixes, resolved places and the error taxonomy for acquiring them.
package location

import (
	"errors"

	"qibla/internal/types"
)

var (
	ErrLocationUnsupported = errors.New("geolocation is not supported on this platform")
	ErrLocationDenied      = errors.New("unable to retrieve location")
	ErrCityNotFound        = errors.New("city not found")

	// ErrNoMatch is returned by a reachable geocoder that has no result for
	// the query. Any other geocoder error means the service was unavailable.
	ErrNoMatch = errors.New("geocoder returned no results")
)

// Place sources.
const (
	SourceDevice    = "device"
	SourceClient    = "client"
	SourceGoogle    = "google"
	SourceOpenCage  = "opencage"
	SourceGazetteer = "gazetteer"
	SourceCache     = "cache"
	SourceBuiltin   = "builtin"
)

// Place is a named coordinate produced by a location fix or a city lookup.
type Place struct {
	Name   string      `json:"name"`
	Point  types.Point `json:"point"`
	Source string      `json:"source"`
}
