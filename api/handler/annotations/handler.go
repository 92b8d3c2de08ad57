// Package annotations contains the HTTP handlers for saving, listing
// and exporting annotation records.
package annotations

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamkucuk/photo-annotation-tool/api/common"
	"github.com/iamkucuk/photo-annotation-tool/internal/annotations"
)

// Handler serves the annotation endpoints backed by one store.
type Handler struct {
	store *annotations.Store
}

func NewHandler(store *annotations.Store) *Handler {
	return &Handler{store: store}
}

// SaveRequest is the JSON body of POST /api/annotate.
type SaveRequest struct {
	ImageName   string `json:"image_name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Tags        string `json:"tags"`
	Labels      string `json:"labels"`
}

// Save appends one annotation record for an image.
func (h *Handler) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "'image_name' and 'description' fields are required")
		return
	}

	err := h.store.Save(annotations.Record{
		ImageName:   req.ImageName,
		Description: req.Description,
		Tags:        req.Tags,
		Labels:      req.Labels,
	})
	if err != nil {
		var verr *annotations.ValidationError
		if errors.As(err, &verr) {
			common.RespondError(c, http.StatusBadRequest, verr.Reason)
			return
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	common.RespondSuccessMessage(c, "annotation saved", nil)
}

// List returns every record in storage order.
func (h *Handler) List(c *gin.Context) {
	records, err := h.store.ReadAll()
	if err != nil {
		respondReadError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"annotations": records,
		"total_count": len(records),
	})
}

// ForImage returns the records for one image in storage order.
func (h *Handler) ForImage(c *gin.Context) {
	records, err := h.store.ReadForImage(c.Param("image_name"))
	if err != nil {
		respondReadError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"annotations": records,
		"total_count": len(records),
	})
}

// Statistics returns aggregate counts and the most common tags and
// labels.
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.store.Statistics()
	if err != nil {
		respondReadError(c, err)
		return
	}

	common.RespondSuccess(c, stats)
}

// Export streams the whole store as a CSV attachment. The export is
// buffered first so a mid-read failure produces an error response
// instead of a truncated download.
func (h *Handler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.store.WriteCSV(&buf); err != nil {
		respondReadError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="annotations.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// respondReadError distinguishes a corrupt store, which an operator must
// look at, from other read failures.
func respondReadError(c *gin.Context, err error) {
	if errors.Is(err, annotations.ErrCorruptStore) {
		common.RespondError(c, http.StatusInternalServerError, "annotation store is corrupt: "+err.Error())
		return
	}
	common.RespondError(c, http.StatusInternalServerError, err.Error())
}
