package asset

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DownloadAsset streams a staged asset
// @Summary      Download an asset
// @Description  Streams the staged file through the server. Prefer the download-url endpoint when the client can reach storage directly.
// @Tags         assets
// @Accept       json
// @Produce      application/octet-stream
// @Param        asset_id  path      string  true  "asset ID"
// @Success      200       {file}    binary  "file stream"
// @Failure      400       {object}  ErrorResponse  "missing asset_id"
// @Failure      404       {object}  ErrorResponse  "asset not found"
// @Failure      500       {object}  ErrorResponse  "internal error"
// @Router       /api/v1/assets/{asset_id}/download [get]
func (h *Handler) DownloadAsset(c *gin.Context) {
	assetID := c.Param("asset_id")
	if assetID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid asset_id",
		})
		return
	}

	ctx := c.Request.Context()

	rec, reader, err := h.assetService.OpenAsset(ctx, assetID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer reader.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": `attachment; filename="` + rec.Name + `"`,
	}
	c.DataFromReader(http.StatusOK, rec.FileSize, rec.ContentType, reader, extraHeaders)
}
