package asset

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteAssetRequest identifies one asset.
type DeleteAssetRequest struct {
	AssetID string `uri:"asset_id" binding:"required"` // asset ID (required)
}

// DeleteAsset removes a staged asset
// @Summary      Delete an asset
// @Description  Removes the stored file and soft-deletes the asset record. Renders that already consumed the asset are unaffected.
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        asset_id  path      string  true  "asset ID"
// @Success      200       {object}  map[string]interface{}  "deleted"
// @Failure      400       {object}  ErrorResponse  "missing asset_id"
// @Failure      404       {object}  ErrorResponse  "asset not found"
// @Failure      500       {object}  ErrorResponse  "internal error"
// @Router       /api/v1/assets/{asset_id} [delete]
func (h *Handler) DeleteAsset(c *gin.Context) {
	var req DeleteAssetRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid asset_id",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	if err := h.assetService.DeleteAsset(ctx, req.AssetID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "asset deleted",
	})
}
