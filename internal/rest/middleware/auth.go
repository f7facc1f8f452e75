package middleware

import (
	"strings"

	"github.com/facto/facto/internal/auth"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthenticateMiddleware verifies the Firebase ID token in the Authorization header
// and puts the user into the request context. With a nil provider every request
// passes through as a guest.
func AuthenticateMiddleware(provider auth.Provider, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if provider == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader(types.HeaderAuthorization)
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			_ = c.Error(ierr.NewError("missing bearer token").
				WithHint("Please sign in").
				Mark(ierr.ErrUnauthenticated))
			c.Abort()
			return
		}

		claims, err := provider.ValidateToken(c.Request.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			logger.Debugw("failed to validate token", "error", err)
			_ = c.Error(err)
			c.Abort()
			return
		}

		ctx := types.SetUserID(c.Request.Context(), claims.UID)
		ctx = types.SetUserEmail(ctx, claims.Email)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
