package render

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultArtifactURLExpiry = time.Hour

// GetArtifactURLRequest identifies one render.
type GetArtifactURLRequest struct {
	RenderID string `uri:"render_id" binding:"required"` // render ID (required)
}

// GetArtifactURLResponseData is the presigned artifact link payload.
type GetArtifactURLResponseData struct {
	RenderID    string `json:"render_id"`
	StorageKey  string `json:"storage_key"`
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// GetArtifactURL returns a presigned download URL for a rendered artifact
// @Summary      Get an artifact download URL
// @Description  Returns a time-limited download URL for the stored video artifact, for clients that fetch it directly from storage.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        render_id   path      string  true   "render ID"
// @Param        expires_in  query     int     false  "URL lifetime in seconds (default 3600)"
// @Success      200         {object}  map[string]interface{}  "download link"
// @Failure      400         {object}  ErrorResponse  "missing render_id"
// @Failure      404         {object}  ErrorResponse  "render not found"
// @Failure      409         {object}  ErrorResponse  "render has no artifact yet"
// @Failure      500         {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders/{render_id}/artifact-url [get]
func (h *Handler) GetArtifactURL(c *gin.Context) {
	var req GetArtifactURLRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid render_id",
			Detail:  err.Error(),
		})
		return
	}

	expiresIn := defaultArtifactURLExpiry
	if expiresInStr := c.Query("expires_in"); expiresInStr != "" {
		if seconds, err := strconv.Atoi(expiresInStr); err == nil && seconds > 0 {
			expiresIn = time.Duration(seconds) * time.Second
		}
	}

	ctx := c.Request.Context()

	link, err := h.renderService.ArtifactLink(ctx, req.RenderID, expiresIn)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": GetArtifactURLResponseData{
			RenderID:    link.RenderID,
			StorageKey:  link.StorageKey,
			DownloadURL: link.URL,
			ExpiresAt:   link.ExpiresAt.Format(time.RFC3339),
			SizeBytes:   link.SizeBytes,
			ContentType: link.ContentType,
		},
	})
}
