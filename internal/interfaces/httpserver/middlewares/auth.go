package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/infrastructure/auth"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const userIDContextKey = "user_id"

// AuthMiddleware validates the bearer access token and resolves the caller's
// user id into the gin context. Every failure is 401.
func AuthMiddleware(tokens *auth.TokenManager, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			logger.Warn().
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("unauthenticated request")
			responses.HandleNewError(c, apperrors.ErrorTypeUnauthorized, "authentication required")
			return
		}

		userID, err := tokens.Verify(c.Request.Context(), token, auth.TokenTypeAccess)
		if err != nil {
			logger.Warn().Err(err).Msg("access token rejected")
			responses.HandleNewError(c, apperrors.ErrorTypeUnauthorized, "invalid or expired token")
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// APIKeyMiddleware optionally gates a route group behind a shared service
// key. A blank configured key disables the gate.
func APIKeyMiddleware(serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey != "" && c.GetHeader("X-API-Key") != serviceKey {
			responses.HandleNewError(c, apperrors.ErrorTypeUnauthorized, "invalid service api key")
			return
		}
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(c *gin.Context) (uint, bool) {
	val, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok
}

// BearerToken returns the raw access token from the Authorization header.
func BearerToken(c *gin.Context) string {
	return bearerToken(c)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
