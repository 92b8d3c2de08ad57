package core

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/internal/annotations"
	"github.com/iamkucuk/photo-annotation-tool/internal/imagestore"
)

// HealthHandler reports whether both stores are reachable on disk.
type HealthHandler struct {
	images      *imagestore.Store
	annotations *annotations.Store
}

func NewHealthHandler(images *imagestore.Store, annotationStore *annotations.Store) *HealthHandler {
	return &HealthHandler{images: images, annotations: annotationStore}
}

func (h *HealthHandler) Handle(c *gin.Context) {
	imageStatus := checkDirectory(h.images.BasePath())
	annotationStatus := checkDirectory(filepath.Dir(h.annotations.Path()))

	status := http.StatusOK
	overall := "healthy"
	if imageStatus != "ok" || annotationStatus != "ok" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":           overall,
		"image_store":      imageStatus,
		"annotation_store": annotationStatus,
	})
}

func checkDirectory(dir string) string {
	if _, err := os.ReadDir(dir); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
