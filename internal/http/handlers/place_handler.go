// README: Gazetteer maintenance handler.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qibla/internal/modules/location"
	"qibla/internal/types"
)

type PlaceHandler struct {
	places *location.Gazetteer
}

func NewPlaceHandler(places *location.Gazetteer) *PlaceHandler {
	return &PlaceHandler{places: places}
}

type upsertPlaceReq struct {
	Name string   `json:"name" binding:"required"`
	Lat  *float64 `json:"lat" binding:"required"`
	Lng  *float64 `json:"lng" binding:"required"`
}

// Upsert handles PUT /api/places. Cached lookups of the same name keep
// their old coordinate until the cache TTL expires.
func (h *PlaceHandler) Upsert(c *gin.Context) {
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "gazetteer not configured")
		return
	}
	var req upsertPlaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "name, lat and lng are required")
		return
	}
	p := location.Place{
		Name:  strings.TrimSpace(req.Name),
		Point: types.Point{Lat: *req.Lat, Lng: *req.Lng},
	}
	if p.Name == "" || !p.Point.Valid() {
		writeError(c, http.StatusBadRequest, "invalid place")
		return
	}
	if err := h.places.Upsert(c.Request.Context(), p); err != nil {
		writeDomainError(c, err, nil)
		return
	}
	writeJSON(c, http.StatusOK, p)
}
