package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

const credentialKey = "credential"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("client", c.ClientIP()),
			zap.Duration("latency", time.Since(start)))
	}
}

// requireCredential verifies the bearer secret unless auth is disabled
func (s *Server) requireCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.opts.AuthEnabled {
			c.Next()
			return
		}

		secret := bearerToken(c.GetHeader("Authorization"))
		cred, err := s.credentials.Verify(c.Request.Context(), secret)
		if err != nil {
			if !errors.Is(err, core.ErrUnauthorized) {
				s.logger.Error("Credential check failed", zap.Error(err))
			}
			abortWithError(c, core.ErrUnauthorized)
			return
		}

		c.Set(credentialKey, cred)
		c.Next()
	}
}

// rateLimit applies the per-client budget; a limiter failure lets the request through
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ok, err := s.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.logger.Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			abortWithError(c, core.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// statusFor maps service errors to HTTP status codes and public messages
func statusFor(err error) (int, string) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid or expired API key"
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
