package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionContextKey = "session_key"

// sessionMiddleware attaches the shopper session to the request. The token is
// read from the cookie first, then the header, and is echoed back in both.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(h.session.CookieName)
		if err != nil || token == "" {
			token = c.GetHeader(h.session.HeaderName)
		}

		resolved, created, err := h.deps.Sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			h.logger.Error("Failed to resolve session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
			return
		}

		c.Set(sessionContextKey, resolved)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.session.CookieName, resolved, int(h.session.TTL.Seconds()), "/", "", h.session.Secure, true)
		c.Header(h.session.HeaderName, resolved)

		if created {
			h.logger.Debug("New shopper session", zap.String("path", c.FullPath()))
		}

		c.Next()
	}
}

func sessionKey(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
