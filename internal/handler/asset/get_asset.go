package asset

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAssetRequest identifies one asset.
type GetAssetRequest struct {
	AssetID string `uri:"asset_id" binding:"required"` // asset ID (required)
}

// GetAsset returns one staged asset record
// @Summary      Get an asset
// @Description  Returns the metadata of one staged asset.
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        asset_id  path      string  true  "asset ID"
// @Success      200       {object}  map[string]interface{}  "asset record"
// @Failure      400       {object}  ErrorResponse  "missing asset_id"
// @Failure      404       {object}  ErrorResponse  "asset not found"
// @Failure      500       {object}  ErrorResponse  "internal error"
// @Router       /api/v1/assets/{asset_id} [get]
func (h *Handler) GetAsset(c *gin.Context) {
	var req GetAssetRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid asset_id",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	rec, err := h.assetService.GetAsset(ctx, req.AssetID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    toAssetInfo(rec),
	})
}
