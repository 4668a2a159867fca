// README: Firebase bearer-token auth middleware and caller accessors.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridebook/internal/infra"
	"ridebook/internal/modules/booking"
)

const (
	ctxKeyUID    = "auth.uid"
	ctxKeyRole   = "auth.role"
	ctxKeyUserID = "auth.user_id"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Auth rejects requests without a valid bearer token.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return authenticate(verifier, true)
}

// OptionalAuth identifies the caller when a token is sent, and lets
// anonymous requests through. An invalid token is still rejected.
func OptionalAuth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return authenticate(verifier, false)
}

func authenticate(verifier infra.TokenVerifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && !required {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		verified, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil || verified == nil {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(ctxKeyUID, verified.UID)
		if role := verified.Role(); role != "" {
			c.Set(ctxKeyRole, role)
		}
		if id, ok := verified.UserID(); ok {
			c.Set(ctxKeyUserID, id)
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: msg, Code: string(booking.KindUnauthenticated)})
}

// CallerUID is the verified token subject, or "" for anonymous requests.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

// CallerRole is the upper-cased role claim, or "" when none was sent.
func CallerRole(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}

// CallerUser is the booking user behind the request, or nil when the caller
// is anonymous or their token carries no user id.
func CallerUser(c *gin.Context) *booking.User {
	id := c.GetInt64(ctxKeyUserID)
	if id <= 0 {
		return nil
	}
	return &booking.User{ID: id, Role: booking.ParseRole(CallerRole(c))}
}
