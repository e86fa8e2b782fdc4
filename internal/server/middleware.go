package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ecoscape/internal/auditcontext"
	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	"github.com/smallbiznis/ecoscape/internal/authorization"
	obscontext "github.com/smallbiznis/ecoscape/internal/observability/context"
)

const (
	contextUserIDKey = "user_id"
	contextEmailKey  = "email"
	contextRoleKey   = "role"
)

// AuthRequired resolves the bearer token and stores the principal on the request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		userID := principal.UserID.String()
		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), userID)
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeUser), userID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextUserIDKey, userID)
		c.Set(contextEmailKey, principal.Email)
		c.Set(contextRoleKey, string(principal.Role))
		c.Next()
	}
}

// Authorize rejects principals whose role does not grant action on object.
func (s *Server) Authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetString(contextUserIDKey))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		err := s.authzSvc.Authorize(c.Request.Context(), "user:"+userID, c.GetString(contextRoleKey), object, action)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, authorization.ErrForbidden),
			errors.Is(err, authorization.ErrInvalidRole):
			AbortWithError(c, ErrForbidden)
		default:
			AbortWithError(c, err)
		}
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
