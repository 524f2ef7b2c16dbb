package asset

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"newsreel/internal/model/asset"
	"newsreel/internal/service"
)

// UploadAssetResponseData is the staged-asset response payload.
type UploadAssetResponseData struct {
	AssetID    string `json:"asset_id"`
	StorageKey string `json:"storage_key"` // reference this key in a render request
	FileSize   int64  `json:"file_size"`
	FileName   string `json:"file_name"`
}

// UploadAsset stages a slide image or audio segment
// @Summary      Upload an asset
// @Description  Stages a slide image or narration audio segment in object storage. The returned storage key can be used as a location reference in a render request.
// @Tags         assets
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file    true  "the file to stage"
// @Param        kind  formData  string  true  "asset kind: slide or audio"
// @Success      201   {object}  map[string]interface{}  "staged"
// @Failure      400   {object}  ErrorResponse  "missing file or unknown kind"
// @Failure      413   {object}  ErrorResponse  "file exceeds the per-asset size cap"
// @Failure      500   {object}  ErrorResponse  "internal error"
// @Router       /api/v1/assets [post]
func (h *Handler) UploadAsset(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid file",
			Detail:  err.Error(),
		})
		return
	}

	kind := asset.AssetKind(c.PostForm("kind"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "kind must be slide or audio",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Failed to open file",
			Detail:  err.Error(),
		})
		return
	}
	defer src.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()

	rec, err := h.assetService.UploadAsset(ctx, &service.UploadAssetRequest{
		Kind:        kind,
		FileName:    file.Filename,
		ContentType: contentType,
		Ext:         ext,
		Data:        src,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "asset staged",
		"data": UploadAssetResponseData{
			AssetID:    rec.ID,
			StorageKey: rec.StorageKey,
			FileSize:   rec.FileSize,
			FileName:   rec.Name,
		},
	})
}
