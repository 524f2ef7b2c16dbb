package asset

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListAssetsRequest filters and pages the asset list.
type ListAssetsRequest struct {
	Kind   string `form:"kind" binding:"omitempty,oneof=slide audio"` // optional kind filter
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

// ListAssetsResponseData is the asset list payload.
type ListAssetsResponseData struct {
	Assets []AssetInfo `json:"assets"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListAssets pages through staged assets
// @Summary      List assets
// @Description  Lists staged assets newest first, optionally filtered by kind.
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        kind    query     string  false  "asset kind: slide or audio"
// @Param        limit   query     int     false  "page size (default 20, max 100)"
// @Param        offset  query     int     false  "page offset"
// @Success      200     {object}  map[string]interface{}  "asset list"
// @Failure      400     {object}  ErrorResponse  "invalid query parameters"
// @Failure      500     {object}  ErrorResponse  "internal error"
// @Router       /api/v1/assets [get]
func (h *Handler) ListAssets(c *gin.Context) {
	var req ListAssetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid query parameters",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	records, total, err := h.assetService.ListAssets(ctx, req.Kind, req.Limit, req.Offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": ListAssetsResponseData{
			Assets: toAssetInfoList(records),
			Total:  total,
			Limit:  req.Limit,
			Offset: req.Offset,
		},
	})
}
