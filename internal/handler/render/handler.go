package render

import (
	rendersvc "newsreel/internal/service/render"
)

// Handler exposes the render pipeline over HTTP. Every endpoint goes through
// the render service; handlers stay thin.
type Handler struct {
	renderService rendersvc.RenderService
}

// NewHandler creates the render handler.
func NewHandler(renderService rendersvc.RenderService) *Handler {
	return &Handler{
		renderService: renderService,
	}
}
