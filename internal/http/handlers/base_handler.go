// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridebook/internal/maps"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
	"ridebook/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeErrorCode(c *gin.Context, status int, msg, code string) {
	writeJSON(c, status, errorResponse{Error: msg, Code: code})
}

func writeInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, http.StatusInternalServerError, "internal error")
}

func writeBookingError(c *gin.Context, err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		status := http.StatusBadRequest
		if verr.Kind == booking.KindUnauthenticated {
			status = http.StatusUnauthorized
		}
		writeErrorCode(c, status, verr.Message, string(verr.Kind))
		return
	}
	var serr *booking.SubmissionError
	if errors.As(err, &serr) {
		_ = c.Error(err)
		status, msg := serr.Status, serr.Message
		if serr.Retryable() {
			status = http.StatusServiceUnavailable
		}
		if msg == "" {
			msg = "booking service unavailable"
		}
		writeErrorCode(c, status, msg, serr.Code)
		return
	}

	switch {
	case errors.Is(err, booking.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInvalidState), errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrTierNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, pricing.ErrInvalidDistance):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeRouteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, route.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, route.ErrInvalidSlot), errors.Is(err, types.ErrInvalidCoordinate):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeInternal(c, err)
	}
}

// writeGeoError maps provider failures. "Nothing found" is a 404; anything
// else is the upstream's fault.
func writeGeoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, maps.ErrNoResult), errors.Is(err, maps.ErrNoRoute):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "map provider unavailable")
	}
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
