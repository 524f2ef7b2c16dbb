package render

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"newsreel/internal/model/render"
)

// CreateRenderResponseData is the accepted-render response payload.
type CreateRenderResponseData struct {
	RenderID     string `json:"render_id"`     // accepted render ID
	RenderStatus string `json:"render_status"` // always pending on acceptance
}

// CreateRender accepts a render request and launches the pipeline
// @Summary      Start a render
// @Description  Validates the slide/audio manifest and launches the assembly pipeline in the background. Poll the render status or progress endpoints to follow it.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        request  body      render.RenderRequest  true  "slides, audio, orientation, overlay_date"
// @Success      202      {object}  map[string]interface{}  "accepted"
// @Failure      400      {object}  ErrorResponse  "malformed body or invalid manifest"
// @Failure      500      {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders [post]
func (h *Handler) CreateRender(c *gin.Context) {
	var req render.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	rec, err := h.renderService.StartRender(ctx, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "render accepted",
		"data": CreateRenderResponseData{
			RenderID:     rec.ID,
			RenderStatus: rec.RenderStatus.String(),
		},
	})
}
