// README: Route session endpoints: create, edit with map events, checkout.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridebook/internal/http/middleware"
	"ridebook/internal/modules/route"
	"ridebook/internal/service"
	"ridebook/internal/types"
)

type RouteHandler struct {
	registry *route.Registry
	checkout *service.Checkout
}

func NewRouteHandler(registry *route.Registry, checkout *service.Checkout) *RouteHandler {
	return &RouteHandler{registry: registry, checkout: checkout}
}

type routeResp struct {
	ID       string      `json:"id"`
	State    route.State `json:"state"`
	Complete bool        `json:"complete"`
}

func newRouteResp(id string, st route.State) routeResp {
	return routeResp{ID: id, State: st, Complete: st.Complete()}
}

func (h *RouteHandler) Create(c *gin.Context) {
	id, s := h.registry.Create(middleware.CallerUID(c))
	writeJSON(c, http.StatusCreated, newRouteResp(id, s.State()))
}

func (h *RouteHandler) Get(c *gin.Context) {
	id := c.Param("id")
	s, err := h.registry.Get(id, middleware.CallerUID(c))
	if err != nil {
		writeRouteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, newRouteResp(id, s.State()))
}

func (h *RouteHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id"), middleware.CallerUID(c)); err != nil {
		writeRouteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type routeEventReq struct {
	Type    string   `json:"type"`
	Slot    string   `json:"slot"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

// Event applies one map interaction. The response is the synchronous state:
// lookups it triggered show up as pending and resolve in the background.
func (h *RouteHandler) Event(c *gin.Context) {
	id := c.Param("id")
	s, err := h.registry.Get(id, middleware.CallerUID(c))
	if err != nil {
		writeRouteError(c, err)
		return
	}

	var req routeEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	kind := strings.ToLower(strings.TrimSpace(req.Type))
	switch kind {
	case "recompute":
		writeJSON(c, http.StatusOK, newRouteResp(id, s.Recompute()))
		return
	case "reset":
		writeJSON(c, http.StatusOK, newRouteResp(id, s.Reset()))
		return
	}

	if req.Lat == nil || req.Lng == nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	coord := types.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	if err := coord.Validate(); err != nil {
		writeRouteError(c, err)
		return
	}
	if kind == "click" {
		writeJSON(c, http.StatusOK, newRouteResp(id, s.Click(coord)))
		return
	}

	slot, err := route.ParseSlot(req.Slot)
	if err != nil {
		writeRouteError(c, err)
		return
	}
	var ev route.Event
	switch kind {
	case "select":
		ev = route.PointSelected{Slot: slot, Coord: coord}
	case "drag":
		ev = route.PointDragged{Slot: slot, Coord: coord}
	case "place":
		ev = route.PlaceSelected{Slot: slot, Coord: coord, FormattedAddress: strings.TrimSpace(req.Address)}
	default:
		writeError(c, http.StatusBadRequest, "unknown event type")
		return
	}
	writeJSON(c, http.StatusOK, newRouteResp(id, s.Apply(ev)))
}

type checkoutReq struct {
	TierID    *int   `json:"tierId"`
	PickupAt  string `json:"pickupAt"`
	DropoffAt string `json:"dropoffAt"`
}

// Checkout books the session's route for the caller. The session is
// discarded on success and left untouched on failure.
func (h *RouteHandler) Checkout(c *gin.Context) {
	id, owner := c.Param("id"), middleware.CallerUID(c)
	s, err := h.registry.Get(id, owner)
	if err != nil {
		writeRouteError(c, err)
		return
	}

	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	b, err := h.checkout.Run(c.Request.Context(), s, service.CheckoutRequest{
		TierID:    req.TierID,
		User:      middleware.CallerUser(c),
		PickupAt:  req.PickupAt,
		DropoffAt: req.DropoffAt,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	_ = h.registry.Delete(id, owner)
	writeJSON(c, http.StatusCreated, b)
}
