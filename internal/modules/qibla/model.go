// README: Qibla target and derived bearing/distance result.
package qibla

import "qibla/internal/types"

// Kaaba is the fixed target every computation is relative to.
var Kaaba = types.Point{Lat: 21.4224779, Lng: 39.8251832}

// Result holds the bearing and distance derived from one origin snapshot.
type Result struct {
	Origin         types.Point `json:"origin"`
	BearingDegrees float64     `json:"bearing_degrees"`
	DistanceKm     int         `json:"distance_km"`
}

// Compute derives bearing and distance to the Kaaba from the same origin.
func Compute(origin types.Point) Result {
	return Result{
		Origin:         origin,
		BearingDegrees: Bearing(origin, Kaaba),
		DistanceKm:     DistanceKm(origin, Kaaba),
	}
}

// Rounded returns the bearing rounded to a whole degree.
func (r Result) Rounded() int {
	return RoundDegrees(r.BearingDegrees)
}
