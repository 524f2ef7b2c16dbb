package asset

import (
	"newsreel/internal/service"
)

// Handler exposes asset staging over HTTP.
type Handler struct {
	assetService service.AssetService
}

// NewHandler creates the asset handler.
func NewHandler(assetService service.AssetService) *Handler {
	return &Handler{
		assetService: assetService,
	}
}
