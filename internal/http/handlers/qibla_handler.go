// README: Stateless Qibla lookups by coordinate or city name.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qibla/internal/modules/finder"
	"qibla/internal/modules/location"
	"qibla/internal/modules/qibla"
	"qibla/internal/types"
)

const sourceQuery = "query"

type QiblaHandler struct {
	resolver *location.Resolver
	observer finder.Observer
}

func NewQiblaHandler(resolver *location.Resolver, observer finder.Observer) *QiblaHandler {
	if resolver == nil {
		resolver = location.NewResolver(nil, nil)
	}
	return &QiblaHandler{resolver: resolver, observer: observer}
}

type directionResp struct {
	Origin       types.Point `json:"origin"`
	PlaceName    string      `json:"place_name,omitempty"`
	Source       string      `json:"source"`
	Bearing      int         `json:"bearing_degrees"`
	BearingExact float64     `json:"bearing_exact"`
	Cardinal     string      `json:"cardinal"`
	DistanceKm   int         `json:"distance_km"`
}

func (h *QiblaHandler) respond(c *gin.Context, place location.Place) {
	res := qibla.Compute(place.Point)
	if h.observer != nil {
		h.observer.QiblaComputed(place.Source)
	}
	writeJSON(c, http.StatusOK, directionResp{
		Origin:       res.Origin,
		PlaceName:    place.Name,
		Source:       place.Source,
		Bearing:      res.Rounded(),
		BearingExact: res.BearingDegrees,
		Cardinal:     qibla.CardinalDirection(res.BearingDegrees),
		DistanceKm:   res.DistanceKm,
	})
}

// Direction handles GET /api/qibla?lat=&lng=.
func (h *QiblaHandler) Direction(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng must be numbers")
		return
	}
	p := types.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "coordinate out of range")
		return
	}
	h.respond(c, location.Place{Point: p, Source: sourceQuery})
}

// City handles GET /api/qibla/city?q=.
func (h *QiblaHandler) City(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing q")
		return
	}
	place, err := h.resolver.ResolveCity(c.Request.Context(), q)
	if err != nil {
		writeDomainError(c, err, nil)
		return
	}
	h.respond(c, place)
}

// Cities lists the names the built-in table always resolves.
func (h *QiblaHandler) Cities(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"cities": location.KnownCities()})
}
