// README: Booking backend endpoints: submit, list, get, status transitions.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebook/internal/http/middleware"
	"ridebook/internal/modules/booking"
)

type BookingHandler struct {
	bookings *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

// caller returns the authenticated booking user, writing a 401 when the token
// carries no user id.
func caller(c *gin.Context) (booking.User, bool) {
	u := middleware.CallerUser(c)
	if u == nil {
		writeErrorCode(c, http.StatusUnauthorized, "missing user_id claim", string(booking.KindUnauthenticated))
		return booking.User{}, false
	}
	return *u, true
}

func (h *BookingHandler) Submit(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	var p booking.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid json", string(booking.KindInvalidPayload))
		return
	}
	if user.Role != booking.RoleAdmin {
		if p.UserID != user.ID {
			writeError(c, http.StatusForbidden, "cannot book for another user")
			return
		}
		if p.Role != "" && booking.ParseRole(string(p.Role)) != user.Role {
			writeError(c, http.StatusForbidden, "cannot book with another role")
			return
		}
		p.Role = user.Role
	}

	b, err := h.bookings.Submit(c.Request.Context(), p)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

// List answers GET /api/bookings?userId=&page=&pageSize=. userId defaults to
// the caller.
func (h *BookingHandler) List(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	userID := user.ID
	if raw := c.Query("userId"); raw != "" {
		id, ok := queryInt(c, "userId", 0)
		if !ok {
			writeError(c, http.StatusBadRequest, "invalid userId")
			return
		}
		userID = int64(id)
	}
	page, okPage := queryInt(c, "page", 1)
	pageSize, okSize := queryInt(c, "pageSize", booking.DefaultPageSize)
	if !okPage || !okSize {
		writeError(c, http.StatusBadRequest, "invalid page or pageSize")
		return
	}

	res, err := h.bookings.ListByUser(c.Request.Context(), user, userID, page, pageSize)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *BookingHandler) Get(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id, user)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type statusReq struct {
	Status booking.Status `json:"status"`
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !req.Status.Valid() {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}

	b, err := h.bookings.UpdateStatus(c.Request.Context(), id, req.Status, user)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}
