package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/ecoscape/internal/auth/domain"
)

const loginRoute = "/api/auth/login"

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Login(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := s.loginLimiter.Allow(ctx, c.ClientIP())
	if err != nil {
		// The limiter store being down must not lock everyone out.
		s.log.Warn("login rate limiter unavailable", zap.Error(err))
	} else if !result.Allowed {
		s.obsMetrics.RecordRateLimitDenied(ctx, loginRoute, "exhausted")
		if result.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
		}
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	res, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Login successful", gin.H{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.User,
	})
}

func (s *Server) Me(c *gin.Context) {
	userID, err := snowflake.ParseString(c.GetString(contextUserIDKey))
	if err != nil || userID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"user": user})
}
