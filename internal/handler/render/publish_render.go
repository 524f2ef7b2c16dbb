package render

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"newsreel/internal/model/render"
	rendersvc "newsreel/internal/service/render"
)

// PublishRenderRequest carries the privacy decision and platform metadata.
type PublishRenderRequest struct {
	RenderID    string   `json:"-" uri:"render_id" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	// Privacy is the externally decided visibility. "blocked" records the
	// compliance decision and performs no platform call.
	Privacy string `json:"privacy" binding:"required,oneof=public unlisted private blocked"`
}

// PublishRenderResponseData is the publish acceptance payload.
type PublishRenderResponseData struct {
	RenderID      string `json:"render_id"`
	PublishStatus string `json:"publish_status"`
	Privacy       string `json:"privacy"`
}

// PublishRender delivers a rendered artifact to the platform
// @Summary      Publish a render
// @Description  Records the privacy decision for a rendered video and, unless the decision is blocked, uploads the artifact to the platform in the background. Poll the render record for the publish status and the platform video ID.
// @Tags         renders
// @Accept       json
// @Produce      json
// @Param        render_id  path      string                true  "render ID"
// @Param        request    body      PublishRenderRequest  true  "title, privacy decision, platform metadata"
// @Success      202        {object}  map[string]interface{}  "publish accepted (or blocked recorded)"
// @Failure      400        {object}  ErrorResponse  "invalid body or privacy value"
// @Failure      404        {object}  ErrorResponse  "render not found"
// @Failure      409        {object}  ErrorResponse  "no artifact yet, already publishing, or already published"
// @Failure      500        {object}  ErrorResponse  "internal error"
// @Router       /api/v1/renders/{render_id}/publish [post]
func (h *Handler) PublishRender(c *gin.Context) {
	var req PublishRenderRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid render_id",
			Detail:  err.Error(),
		})
		return
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	rec, err := h.renderService.Publish(ctx, req.RenderID, rendersvc.PublishOptions{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
		Privacy:     render.Privacy(req.Privacy),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "publish accepted",
		"data": PublishRenderResponseData{
			RenderID:      rec.ID,
			PublishStatus: rec.PublishStatus.String(),
			Privacy:       rec.Privacy.String(),
		},
	})
}
