package render

import (
	"net/http"

	"github.com/gin-gonic/gin"

	rendersvc "newsreel/internal/service/render"
)

// GetProgressRequest identifies one render.
type GetProgressRequest struct {
	RenderID string `uri:"render_id" binding:"required"` // render ID (required)
}

// GetProgressResponseData is the progress payload.
type GetProgressResponseData struct {
	RenderID string              `json:"render_id"`
	Progress *rendersvc.Progress `json:"progress"`
}

// GetProgress reports the pipeline position of one render
// @Summary      Get render progress
// @Description  Returns the cached stage/percent position of the pipeline, falling back to an estimate derived from the persisted statuses when no cache entry exists.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        render_id  path      string  true  "render ID"
// @Success      200        {object}  map[string]interface{}  "progress"
// @Failure      400        {object}  ErrorResponse  "missing render_id"
// @Failure      404        {object}  ErrorResponse  "render not found"
// @Failure      500        {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders/{render_id}/progress [get]
func (h *Handler) GetProgress(c *gin.Context) {
	var req GetProgressRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid render_id",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	progress, err := h.renderService.GetProgress(ctx, req.RenderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": GetProgressResponseData{
			RenderID: req.RenderID,
			Progress: progress,
		},
	})
}
