package rest

import (
	"net/http"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/gin-gonic/gin"
)

// NewRouter wires middleware and routes:
//
//	GET  /api/health
//	POST /api/auth/signup
//	POST /api/auth/login
//	POST /api/auth/refresh
//	POST /api/auth/forgot-password
//	POST /api/auth/reset-password
//	GET  /api/auth/me              (bearer)
//	PUT  /api/auth/profile         (bearer)
//	PUT  /api/auth/change-password (bearer)
func NewRouter(logger logging.Logger, svc AuthService, tokens TokenVerifier) *gin.Engine {
	engine := gin.New()

	engine.Use(
		RequestID(),
		Logger(logger),
		Recovery(logger),
	)

	h := &Handler{svc: svc, logger: logger}

	api := engine.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/forgot-password", h.ForgotPassword)
	authGroup.POST("/reset-password", h.ResetPassword)

	protected := authGroup.Group("", AccessToken(tokens))
	protected.GET("/me", h.Me)
	protected.PUT("/profile", h.UpdateProfile)
	protected.PUT("/change-password", h.ChangePassword)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, messageResponse{Message: "route not found"})
	})

	return engine
}
