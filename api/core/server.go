// Package core builds the gin engine and HTTP server from the
// application's stores and configuration.
package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/api/middleware"
	"github.com/iamkucuk/photo-annotation-tool/config"
	"github.com/iamkucuk/photo-annotation-tool/internal/annotations"
	"github.com/iamkucuk/photo-annotation-tool/internal/imagestore"
)

// ServerDependencies carries everything the router needs.
type ServerDependencies struct {
	Config      *config.Config
	Images      *imagestore.Store
	Annotations *annotations.Store
}

// setupRouter builds the engine with global middleware and all routes.
// The returned cleanup stops background middleware work.
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	if config.Version != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if config.Version == "dev" {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	cfg := deps.Config
	rateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitExpireTime)

	RegisterRoutes(router, deps, rateLimiter)

	cleanup := func() {
		rateLimiter.Stop()
	}
	return router, cleanup
}

// StartServer constructs the HTTP server; the caller runs ListenAndServe
// and invokes cleanup on shutdown.
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	router, cleanup := setupRouter(deps)

	cfg := deps.Config
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}
	return server, cleanup
}
