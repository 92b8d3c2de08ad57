package images

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/api/common"
	"github.com/iamkucuk/photo-annotation-tool/internal/imagestore"
)

// ListImages returns every stored image with its thumbnail when one
// exists.
func (h *Handler) ListImages(c *gin.Context) {
	entries, err := h.store.List()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.RespondSuccess(c, gin.H{
		"images":      entries,
		"total_count": len(entries),
	})
}

// GetMetadata probes one stored image for dimensions, format and file
// attributes.
func (h *Handler) GetMetadata(c *gin.Context) {
	imageName := c.Param("image_name")

	meta, err := h.store.Metadata(imageName)
	if err != nil {
		switch {
		case errors.Is(err, imagestore.ErrNotFound):
			common.RespondError(c, http.StatusNotFound, "image not found")
		case errors.Is(err, imagestore.ErrCorruptContent):
			common.RespondError(c, http.StatusUnprocessableEntity, "stored file does not decode as an image")
		default:
			common.RespondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	common.RespondSuccess(c, meta)
}
