// Package images contains the HTTP handlers for image upload, listing
// and deletion.
package images

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/api/common"
	"github.com/iamkucuk/photo-annotation-tool/internal/annotations"
	"github.com/iamkucuk/photo-annotation-tool/internal/imagestore"
)

// Handler serves the image endpoints. Deletion coordinates the image
// store and the annotation store so files and rows go away together.
type Handler struct {
	store           *imagestore.Store
	annotations     *annotations.Store
	maxBatchFiles   int
	maxBatchTotalMB int
}

// NewHandler wires the image endpoints to their stores.
func NewHandler(store *imagestore.Store, annotationStore *annotations.Store, maxBatchFiles, maxBatchTotalMB int) *Handler {
	if maxBatchFiles <= 0 {
		maxBatchFiles = 10
	}
	if maxBatchTotalMB <= 0 {
		maxBatchTotalMB = 100
	}
	return &Handler{
		store:           store,
		annotations:     annotationStore,
		maxBatchFiles:   maxBatchFiles,
		maxBatchTotalMB: maxBatchTotalMB,
	}
}

// readUpload pulls the bytes out of one multipart file, bounded just
// past the store limit so oversized uploads fail validation instead of
// exhausting memory.
func (h *Handler) readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.store.MaxFileSize()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}

// respondStoreError maps store failures onto HTTP statuses: validation
// problems are the client's fault, oversize gets 413, corrupt content a
// distinct 400 message, anything else is a server error.
func respondStoreError(c *gin.Context, err error) {
	var verr *imagestore.ValidationError
	switch {
	case errors.As(err, &verr):
		if verr.Field == "size" {
			common.RespondError(c, http.StatusRequestEntityTooLarge, verr.Reason)
			return
		}
		common.RespondError(c, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, imagestore.ErrCorruptContent):
		common.RespondError(c, http.StatusBadRequest, "file is not a valid image")
	default:
		common.RespondError(c, http.StatusInternalServerError, err.Error())
	}
}
