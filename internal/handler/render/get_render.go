package render

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRenderRequest identifies one render.
type GetRenderRequest struct {
	RenderID string `uri:"render_id" binding:"required"` // render ID (required)
}

// GetRenderResponseData is the render lookup payload.
type GetRenderResponseData struct {
	Render RenderInfo `json:"render"`
}

// GetRender looks up one render record
// @Summary      Get a render
// @Description  Returns one render record with both status machines and, once rendered, the artifact metadata.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        render_id  path      string  true  "render ID"
// @Success      200        {object}  map[string]interface{}  "render record"
// @Failure      400        {object}  ErrorResponse  "missing render_id"
// @Failure      404        {object}  ErrorResponse  "render not found"
// @Failure      500        {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders/{render_id} [get]
func (h *Handler) GetRender(c *gin.Context) {
	var req GetRenderRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid render_id",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	rec, err := h.renderService.GetRender(ctx, req.RenderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": GetRenderResponseData{
			Render: toRenderInfo(rec),
		},
	})
}
