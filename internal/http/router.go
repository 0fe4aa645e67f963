package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vladyslavplus/orderly/internal/config"
	"github.com/vladyslavplus/orderly/internal/http/handler"
	"github.com/vladyslavplus/orderly/internal/http/middleware"
)

// NewAuthRouter wires the auth service routes.
func NewAuthRouter(cfg config.Config, authHandler *handler.AuthHandler, authMiddleware *middleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := newEngine(cfg, rateLimiter)

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/revoke", authMiddleware.ValidateJWT, authHandler.Revoke)
		auth.GET("/me", authMiddleware.ValidateJWT, authHandler.Me)
	}

	users := r.Group("/users", authMiddleware.ValidateJWT)
	{
		users.GET("/:id", authHandler.GetUser)
		users.PUT("/:id", authHandler.UpdateUser)
		users.DELETE("/:id", authMiddleware.RequireRole("Admin"), authHandler.DeleteUser)
	}

	return r
}

// NewCatalogRouter wires the catalog service routes. Reads are public;
// mutations require a valid bearer token.
func NewCatalogRouter(cfg config.Config, catalogHandler *handler.CatalogHandler, authMiddleware *middleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := newEngine(cfg, rateLimiter)

	products := r.Group("/products")
	{
		products.GET("/:id", catalogHandler.Get)
		products.POST("", authMiddleware.ValidateJWT, catalogHandler.Create)
		products.PUT("/:id", authMiddleware.ValidateJWT, catalogHandler.Update)
		products.DELETE("/:id", authMiddleware.ValidateJWT, catalogHandler.Delete)
	}

	return r
}

func newEngine(cfg config.Config, rateLimiter *middleware.RateLimiter) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))
	return r
}
