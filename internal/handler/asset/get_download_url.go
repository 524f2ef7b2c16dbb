package asset

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultAssetURLExpiry = time.Hour

// GetDownloadURLRequest identifies one asset.
type GetDownloadURLRequest struct {
	AssetID string `uri:"asset_id" binding:"required"` // asset ID (required)
}

// GetDownloadURLResponseData is the presigned asset link payload.
type GetDownloadURLResponseData struct {
	AssetID     string `json:"asset_id"`
	StorageKey  string `json:"storage_key"`
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

// GetDownloadURL returns a presigned download URL for a staged asset
// @Summary      Get an asset download URL
// @Description  Returns a time-limited download URL for the staged file, for clients that fetch it directly from storage.
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        asset_id    path      string  true   "asset ID"
// @Param        expires_in  query     int     false  "URL lifetime in seconds (default 3600)"
// @Success      200         {object}  map[string]interface{}  "download link"
// @Failure      400         {object}  ErrorResponse  "missing asset_id"
// @Failure      404         {object}  ErrorResponse  "asset not found"
// @Failure      500         {object}  ErrorResponse  "internal error"
// @Router       /api/v1/assets/{asset_id}/download-url [get]
func (h *Handler) GetDownloadURL(c *gin.Context) {
	var req GetDownloadURLRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid asset_id",
			Detail:  err.Error(),
		})
		return
	}

	expiresIn := defaultAssetURLExpiry
	if expiresInStr := c.Query("expires_in"); expiresInStr != "" {
		if seconds, err := strconv.Atoi(expiresInStr); err == nil && seconds > 0 {
			expiresIn = time.Duration(seconds) * time.Second
		}
	}

	ctx := c.Request.Context()

	link, err := h.assetService.AssetLink(ctx, req.AssetID, expiresIn)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": GetDownloadURLResponseData{
			AssetID:     link.AssetID,
			StorageKey:  link.StorageKey,
			DownloadURL: link.URL,
			ExpiresAt:   link.ExpiresAt.Format(time.RFC3339),
			FileName:    link.FileName,
			FileSize:    link.SizeBytes,
			ContentType: link.ContentType,
		},
	})
}
