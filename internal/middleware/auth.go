package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/handler"
	"github.com/jwalitptl/opd-queue/pkg/auth"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

const (
	ContextUserID = auth.ContextUserID
	ContextRole   = auth.ContextRole
)

type AuthMiddleware struct {
	jwt     auth.JWTService
	enabled bool
}

// NewAuthMiddleware returns a guard backed by jwt. With enabled false every
// request is treated as an admin, for local development only.
func NewAuthMiddleware(jwt auth.JWTService, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, enabled: enabled}
}

// Authenticate verifies the bearer token and stores user id and role in the
// context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Set(ContextUserID, uuid.Nil)
			c.Set(ContextRole, auth.RoleAdmin)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handler.RespondError(c, apperrors.Unauthorized("missing authorization header", nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			handler.RespondError(c, apperrors.Unauthorized("invalid authorization format", nil))
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			handler.RespondError(c, apperrors.Unauthorized("invalid token", err))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds one of roles.
// Admins pass every guard.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == auth.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		handler.RespondError(c, apperrors.Forbidden(fmt.Errorf("role %q not in %v", role, roles)))
	}
}
