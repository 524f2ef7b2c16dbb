package render

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CancelRenderRequest identifies one render.
type CancelRenderRequest struct {
	RenderID string `uri:"render_id" binding:"required"` // render ID (required)
}

// CancelRenderResponseData is the cancellation acknowledgement payload.
type CancelRenderResponseData struct {
	RenderID string `json:"render_id"`
}

// CancelRender aborts an in-flight render pipeline
// @Summary      Cancel a render
// @Description  Cancels the in-flight pipeline for a render. The pipeline tears down its sandbox, aborts any in-flight upload session, and records the terminal status itself.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        render_id  path      string  true  "render ID"
// @Success      202        {object}  map[string]interface{}  "cancellation requested"
// @Failure      400        {object}  ErrorResponse  "missing render_id"
// @Failure      404        {object}  ErrorResponse  "render not found"
// @Failure      409        {object}  ErrorResponse  "render is not running"
// @Failure      500        {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders/{render_id}/cancel [post]
func (h *Handler) CancelRender(c *gin.Context) {
	var req CancelRenderRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid render_id",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	if err := h.renderService.CancelRender(ctx, req.RenderID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "cancellation requested",
		"data": CancelRenderResponseData{
			RenderID: req.RenderID,
		},
	})
}
