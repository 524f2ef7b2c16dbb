package asset

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"newsreel/internal/model/asset"
	httputil "newsreel/internal/pkg/http"
	"newsreel/internal/service"
)

// ErrorResponse is the shared error envelope.
type ErrorResponse = httputil.ErrorResponse

// AssetInfo is the API view of one staged asset.
type AssetInfo struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Ext         string `json:"ext"`
	StorageKey  string `json:"storage_key"`
	StorageType string `json:"storage_type"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
	MD5         string `json:"md5,omitempty"`
	Status      string `json:"status"`
	UploadedAt  string `json:"uploaded_at"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// toAssetInfo converts an Asset entity to its API view.
func toAssetInfo(rec *asset.Asset) AssetInfo {
	return AssetInfo{
		ID:          rec.ID,
		Kind:        rec.Kind.String(),
		Name:        rec.Name,
		Ext:         rec.Ext,
		StorageKey:  rec.StorageKey,
		StorageType: rec.StorageType,
		FileSize:    rec.FileSize,
		ContentType: rec.ContentType,
		MD5:         rec.MD5,
		Status:      string(rec.Status),
		UploadedAt:  rec.UploadedAt.Format(time.RFC3339),
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   rec.UpdatedAt.Format(time.RFC3339),
	}
}

// toAssetInfoList converts a list of Asset entities.
func toAssetInfoList(records []*asset.Asset) []AssetInfo {
	result := make([]AssetInfo, len(records))
	for i, rec := range records {
		result[i] = toAssetInfo(rec)
	}
	return result
}

// respondServiceError maps service errors onto HTTP statuses and the shared
// error code scheme.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssetNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidAssetKind):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrAssetEmpty):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrAssetTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Code:    41301,
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
	}
}
