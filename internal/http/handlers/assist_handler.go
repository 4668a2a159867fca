// README: Natural-language booking assistant endpoint.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridebook/internal/http/middleware"
	"ridebook/internal/modules/aiusage"
	"ridebook/internal/modules/booking"
	"ridebook/internal/service"
	"ridebook/internal/types"
)

type AssistHandler struct {
	assistant *service.Assistant
	quota     *aiusage.Service
}

// NewAssistHandler accepts a nil assistant, in which case the endpoint
// answers 404, and a nil quota for unmetered use.
func NewAssistHandler(assistant *service.Assistant, quota *aiusage.Service) *AssistHandler {
	return &AssistHandler{assistant: assistant, quota: quota}
}

type assistReq struct {
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (h *AssistHandler) Assist(c *gin.Context) {
	if h.assistant == nil {
		writeError(c, http.StatusNotFound, "assistant is not configured")
		return
	}
	var req assistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	var position *types.Coordinate
	if req.Lat != nil && req.Lng != nil {
		p := types.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if err := p.Validate(); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		position = &p
	}
	if h.quota != nil {
		err := h.quota.UseToken(c.Request.Context(), middleware.CallerUID(c))
		if errors.Is(err, aiusage.ErrInsufficientTokens) {
			writeError(c, http.StatusTooManyRequests, err.Error())
			return
		}
		if err != nil {
			writeInternal(c, err)
			return
		}
	}

	s, err := h.assistant.Assist(c.Request.Context(), req.Message, position)
	if errors.Is(err, booking.ErrBadRequest) {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "assistant unavailable")
		return
	}
	writeJSON(c, http.StatusOK, s)
}
