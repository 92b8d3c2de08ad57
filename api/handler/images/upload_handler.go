package images

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/iamkucuk/photo-annotation-tool/api/common"
	"github.com/iamkucuk/photo-annotation-tool/internal/imagestore"
)

// UploadImage handles a single multipart upload under the "file" key.
func (h *Handler) UploadImage(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid form data")
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "a file is required under the 'file' key")
		return
	}
	if len(files) > 1 {
		common.RespondError(c, http.StatusBadRequest, "only one file is allowed for single upload")
		return
	}

	content, err := h.readUpload(files[0])
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	entry, err := h.store.Store(files[0].Filename, content)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	common.RespondCreated(c, entry)
}

// uploadResult is one per-file outcome of a batch upload.
type uploadResult struct {
	Filename  string            `json:"filename"`
	Error     string            `json:"error,omitempty"`
	Entry     *imagestore.Entry `json:"entry,omitempty"`
	succeeded bool
}

// UploadImages handles a batch upload under the "files" key. Files are
// processed concurrently; one bad file fails only its own slot.
func (h *Handler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "at least one file is required under the 'files' key")
		return
	}
	if len(files) > h.maxBatchFiles {
		common.RespondError(c, http.StatusBadRequest,
			fmt.Sprintf("maximum %d files allowed per upload", h.maxBatchFiles))
		return
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}
	maxTotal := int64(h.maxBatchTotalMB) << 20
	if totalSize > maxTotal {
		common.RespondError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("total size of all files exceeds maximum of %d MB", h.maxBatchTotalMB))
		return
	}

	results := make([]uploadResult, len(files))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(c.Request.Context())
	for i, fileHeader := range files {
		i, fileHeader := i, fileHeader
		g.Go(func() error {
			result := uploadResult{Filename: fileHeader.Filename}

			content, err := h.readUpload(fileHeader)
			if err == nil {
				var entry *imagestore.Entry
				if entry, err = h.store.Store(fileHeader.Filename, content); err == nil {
					result.Entry = entry
					result.succeeded = true
				}
			}
			if err != nil {
				result.Error = err.Error()
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	successCount := 0
	for _, r := range results {
		if r.succeeded {
			successCount++
		}
	}

	common.RespondSuccess(c, gin.H{
		"total_files":   len(files),
		"success_count": successCount,
		"error_count":   len(files) - successCount,
		"results":       results,
	})
}
