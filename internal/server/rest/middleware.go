package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "userID"

// TokenVerifier resolves bearer tokens. *auth.Issuer satisfies it.
type TokenVerifier interface {
	Verify(kind auth.Kind, token string) (*auth.Claims, error)
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(common.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(common.RequestIDHeader, requestID)
		c.Writer.Header().Set(common.RequestIDHeader, requestID)

		c.Next()
	}
}

func Logger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"status", status,
			"latency", time.Since(start).String(),
			"request_id", c.Writer.Header().Get(common.RequestIDHeader),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.Error(ctx, "http request", args...)
		case status >= 400:
			log.Warn(ctx, "http request", args...)
		default:
			log.Info(ctx, "http request", args...)
		}
	}
}

func Recovery(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered",
					"error", r,
					"request_id", c.Writer.Header().Get(common.RequestIDHeader))
				c.AbortWithStatusJSON(http.StatusInternalServerError, messageResponse{Message: internalErrorMessage})
			}
		}()
		c.Next()
	}
}

// AccessToken resolves "Authorization: Bearer <access token>" to a user id.
func AccessToken(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, messageResponse{Message: "authorization token is required"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, messageResponse{Message: "authorization token is required"})
			return
		}

		claims, err := tokens.Verify(auth.KindAccess, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, messageResponse{Message: common.ErrInvalidOrExpiredToken.Error()})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
