// README: Pure geographic computation helpers for bearing, distance and angle normalization.
package qibla

import (
	"math"

	"qibla/internal/types"
)

const earthRadiusKm = 6371.0

// Bearing returns the initial great-circle bearing from origin to target in
// degrees, normalized into [0,360). When origin and target coincide the
// bearing is undefined; the result is still a stable finite value.
func Bearing(origin, target types.Point) float64 {
	lat1 := degreesToRadians(origin.Lat)
	lat2 := degreesToRadians(target.Lat)
	dLng := degreesToRadians(target.Lng - origin.Lng)

	y := math.Sin(dLng)
	x := math.Cos(lat1)*math.Tan(lat2) - math.Sin(lat1)*math.Cos(dLng)

	return NormalizeDegrees(radiansToDegrees(math.Atan2(y, x)))
}

// DistanceKm returns the haversine distance between two points rounded to the
// nearest kilometre.
func DistanceKm(origin, target types.Point) int {
	return int(math.Round(haversineKm(origin.Lat, origin.Lng, target.Lat, target.Lng)))
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// NormalizeDegrees maps any angle into [0,360). Non-finite input maps to 0.
func NormalizeDegrees(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	d := math.Mod(math.Mod(v, 360)+360, 360)
	// -1e-15 + 360 rounds to exactly 360 in float64.
	if d >= 360 {
		return 0
	}
	return d
}

// RelativeAngle is the rotation to apply to an indicator so it points at
// bearing while the device faces heading.
func RelativeAngle(bearing, heading float64) float64 {
	return NormalizeDegrees(bearing - heading)
}

// RoundDegrees rounds a bearing to the nearest whole degree for display,
// keeping the result in [0,360).
func RoundDegrees(deg float64) int {
	r := int(math.Round(NormalizeDegrees(deg)))
	if r == 360 {
		return 0
	}
	return r
}

var cardinals = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CardinalDirection converts a bearing to a 16-point compass label.
func CardinalDirection(deg float64) string {
	idx := int(math.Floor((NormalizeDegrees(deg)+11.25)/22.5)) % len(cardinals)
	return cardinals[idx]
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
