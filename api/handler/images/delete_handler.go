package images

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/api/common"
)

// DeleteImage removes an image, its thumbnail and all of its annotation
// rows. Each step is best-effort: partial failures are reported in the
// body, never raised, so the caller decides what counts as success.
func (h *Handler) DeleteImage(c *gin.Context) {
	imageName := c.Param("image_name")
	if imageName == "" {
		common.RespondError(c, http.StatusBadRequest, "image name is required")
		return
	}

	report := h.store.Delete(imageName)

	rowsRemoved, err := h.annotations.DeleteForImage(imageName)
	if err != nil {
		log.Printf("Failed to delete annotations for %q: %v", imageName, err)
		report.Errors = append(report.Errors, "failed to delete annotations: "+err.Error())
	}

	common.RespondSuccess(c, gin.H{
		"success":             len(report.Errors) == 0,
		"files_deleted":       report.DeletedPaths,
		"annotations_deleted": rowsRemoved,
		"errors":              report.Errors,
	})
}
