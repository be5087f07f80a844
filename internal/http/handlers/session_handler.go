// README: Finder session handlers: create, inspect, locate, search, camera control, teardown.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qibla/internal/modules/finder"
	"qibla/internal/modules/location"
	"qibla/internal/types"
)

type SessionHandler struct {
	registry *finder.Registry
}

func NewSessionHandler(registry *finder.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// session loads the finder named by the :id path param, writing the error
// response itself when it cannot.
func (h *SessionHandler) session(c *gin.Context) (*finder.Finder, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	f, err := h.registry.Get(id)
	if err != nil {
		writeDomainError(c, err, nil)
		return nil, false
	}
	return f, true
}

func (h *SessionHandler) reply(c *gin.Context, view finder.View, err error) {
	if err != nil {
		if view.ID == "" {
			writeDomainError(c, err, nil)
			return
		}
		writeDomainError(c, err, &view)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (h *SessionHandler) Create(c *gin.Context) {
	f := h.registry.Create()
	writeJSON(c, http.StatusCreated, f.View())
}

func (h *SessionHandler) Get(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, f.View())
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := h.registry.Remove(id); err != nil {
		writeDomainError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type locateReq struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Locate uses the device locator, or the client's own fix when the body
// carries one.
func (h *SessionHandler) Locate(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	var req locateReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Lat == nil && req.Lng == nil {
		view, err := f.Locate(c.Request.Context())
		h.reply(c, view, err)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required together")
		return
	}
	p := types.Point{Lat: *req.Lat, Lng: *req.Lng}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "coordinate out of range")
		return
	}
	view, err := f.LocateFrom(c.Request.Context(), location.Fixed(p))
	h.reply(c, view, err)
}

type cityReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *SessionHandler) City(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	var req cityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "missing name")
		return
	}
	view, err := f.SearchCity(c.Request.Context(), req.Name)
	h.reply(c, view, err)
}

func (h *SessionHandler) StartCamera(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	view, err := f.StartCamera(c.Request.Context())
	h.reply(c, view, err)
}

func (h *SessionHandler) StopCamera(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	view, err := f.StopCamera()
	h.reply(c, view, err)
}

// Frame serves the latest camera frame. The overlay rotation is sent as a
// header for clients that draw the indicator themselves.
func (h *SessionHandler) Frame(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	frame, ok := f.Frame()
	if !ok {
		writeError(c, http.StatusNotFound, "no frame available")
		return
	}
	if rel := f.View().RelativeAngle; rel != nil {
		c.Header("X-Qibla-Relative-Angle", strconv.FormatFloat(*rel, 'f', 1, 64))
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", frame)
}
