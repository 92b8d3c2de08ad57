package core

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/api/common"
	handlerAnnotations "github.com/iamkucuk/photo-annotation-tool/api/handler/annotations"
	handlerImages "github.com/iamkucuk/photo-annotation-tool/api/handler/images"
	"github.com/iamkucuk/photo-annotation-tool/api/middleware"
	"github.com/iamkucuk/photo-annotation-tool/config"
)

// RegisterRoutes attaches every endpoint to the engine.
func RegisterRoutes(router *gin.Engine, deps *ServerDependencies, rateLimiter *middleware.IPRateLimiter) {
	cfg := deps.Config

	imageHandler := handlerImages.NewHandler(deps.Images, deps.Annotations, cfg.UploadMaxBatchFiles, cfg.UploadMaxBatchTotalMB)
	annotationHandler := handlerAnnotations.NewHandler(deps.Annotations)

	registerBasicRoutes(router, deps)
	registerStaticRoutes(router, deps)

	api := router.Group("/api")
	api.Use(rateLimiter.Middleware())
	{
		api.POST("/upload", imageHandler.UploadImage)
		api.POST("/upload-multiple", imageHandler.UploadImages)
		api.GET("/images", imageHandler.ListImages)
		api.GET("/images/:image_name/metadata", imageHandler.GetMetadata)
		api.GET("/images/:image_name/annotations", annotationHandler.ForImage)
		api.DELETE("/images/:image_name", imageHandler.DeleteImage)

		api.POST("/annotate", annotationHandler.Save)
		api.GET("/annotations", annotationHandler.List)
		api.GET("/statistics", annotationHandler.Statistics)
		api.GET("/export", annotationHandler.Export)
	}
}

// registerBasicRoutes adds liveness and build info endpoints.
func registerBasicRoutes(router *gin.Engine, deps *ServerDependencies) {
	healthHandler := NewHealthHandler(deps.Images, deps.Annotations)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(c *gin.Context) {
		common.RespondSuccess(c, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})
}

// registerStaticRoutes serves the uploaded files and the frontend, when
// a static directory is present.
func registerStaticRoutes(router *gin.Engine, deps *ServerDependencies) {
	router.Static("/uploads", deps.Images.BasePath())

	staticDir := deps.Config.StaticDir
	if staticDir == "" {
		return
	}
	if _, err := os.Stat(staticDir); err != nil {
		return
	}

	router.Static("/static", staticDir)

	index := filepath.Join(staticDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		router.StaticFile("/", index)
	}
}
