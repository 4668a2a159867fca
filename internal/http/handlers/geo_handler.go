// README: Geocoding and distance endpoints proxied to the map provider.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ridebook/internal/maps"
	"ridebook/internal/types"
)

type GeoHandler struct {
	geo maps.GeoProvider
}

func NewGeoHandler(geo maps.GeoProvider) *GeoHandler {
	return &GeoHandler{geo: geo}
}

type distanceResp struct {
	Meters     float64 `json:"meters"`
	DistanceKm float64 `json:"distanceKm"`
}

// Distance answers GET /api/distance?origin=lat,lng&destination=lat,lng.
func (h *GeoHandler) Distance(c *gin.Context) {
	rawOrigin, rawDest := c.Query("origin"), c.Query("destination")
	if rawOrigin == "" || rawDest == "" {
		writeError(c, http.StatusBadRequest, "origin and destination are required")
		return
	}
	origin, err := types.ParseCoordinate(rawOrigin)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid origin: "+err.Error())
		return
	}
	dest, err := types.ParseCoordinate(rawDest)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid destination: "+err.Error())
		return
	}

	meters, err := h.geo.RouteDistance(c.Request.Context(), origin, dest)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "distance lookup failed")
		return
	}
	writeJSON(c, http.StatusOK, distanceResp{Meters: meters, DistanceKm: meters / 1000})
}

func (h *GeoHandler) Reverse(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng must be numbers")
		return
	}
	coord := types.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	addr, err := h.geo.ReverseGeocode(c.Request.Context(), coord)
	if err != nil {
		writeGeoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, maps.Place{Coord: coord, Address: addr})
}

func (h *GeoHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing q")
		return
	}
	place, err := h.geo.ForwardGeocode(c.Request.Context(), q)
	if err != nil {
		writeGeoError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, place)
}
