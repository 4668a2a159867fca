// README: Vehicle tier listing and price quotes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebook/internal/modules/pricing"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

func (h *PricingHandler) Tiers(c *gin.Context) {
	tiers, err := h.pricing.Tiers(c.Request.Context())
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"data": tiers})
}

type quoteReq struct {
	TierID     *int     `json:"tierId"`
	DistanceKm *float64 `json:"distanceKm"`
}

// Quote prices a tier over a distance. An unpriceable route (no distance yet,
// or outside every bracket) is 204 with no body.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.TierID == nil {
		writeError(c, http.StatusBadRequest, "missing tierId")
		return
	}
	q, err := h.pricing.Estimate(c.Request.Context(), *req.TierID, req.DistanceKm)
	if err != nil {
		writePricingError(c, err)
		return
	}
	if q == nil {
		c.Status(http.StatusNoContent)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
