package render

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListRendersRequest filters and pages the render list.
type ListRendersRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending rendering rendered error"` // optional render status filter
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

// ListRendersResponseData is the render list payload.
type ListRendersResponseData struct {
	Renders []RenderInfo `json:"renders"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// ListRenders pages through render records
// @Summary      List renders
// @Description  Lists render records newest first, optionally filtered by render status. Used by the dashboard's polling view.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        status  query     string  false  "render status: pending, rendering, rendered, error"
// @Param        limit   query     int     false  "page size (default 20, max 100)"
// @Param        offset  query     int     false  "page offset"
// @Success      200     {object}  map[string]interface{}  "render list"
// @Failure      400     {object}  ErrorResponse  "invalid query parameters"
// @Failure      500     {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders [get]
func (h *Handler) ListRenders(c *gin.Context) {
	var req ListRendersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid query parameters",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	records, total, err := h.renderService.ListRenders(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": ListRendersResponseData{
			Renders: toRenderInfoList(records),
			Total:   total,
			Limit:   req.Limit,
			Offset:  req.Offset,
		},
	})
}
