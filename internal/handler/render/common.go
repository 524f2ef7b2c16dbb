package render

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"newsreel/internal/model/render"
	"newsreel/internal/pkg/assembly"
	httputil "newsreel/internal/pkg/http"
	rendersvc "newsreel/internal/service/render"
)

// ErrorResponse is the shared error envelope.
type ErrorResponse = httputil.ErrorResponse

// RenderInfo is the API view of one render record.
type RenderInfo struct {
	ID            string `json:"id"`
	SlideCount    int    `json:"slide_count"`
	Orientation   string `json:"orientation"`
	OverlayDate   string `json:"overlay_date"`
	RenderStatus  string `json:"render_status"`
	PublishStatus string `json:"publish_status"`

	StorageKey string `json:"storage_key,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	VideoCodec string `json:"video_codec,omitempty"`
	AudioCodec string `json:"audio_codec,omitempty"`
	Format     string `json:"format,omitempty"`

	Privacy         string `json:"privacy,omitempty"`
	PlatformVideoID string `json:"platform_video_id,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// toRenderInfo converts a Render entity to its API view.
func toRenderInfo(rec *render.Render) RenderInfo {
	return RenderInfo{
		ID:              rec.ID,
		SlideCount:      len(rec.Slides),
		Orientation:     rec.Orientation.String(),
		OverlayDate:     rec.OverlayDate,
		RenderStatus:    rec.RenderStatus.String(),
		PublishStatus:   rec.PublishStatus.String(),
		StorageKey:      rec.StorageKey,
		Width:           rec.Width,
		Height:          rec.Height,
		DurationMs:      rec.DurationMs,
		FPS:             rec.FPS,
		VideoCodec:      rec.VideoCodec,
		AudioCodec:      rec.AudioCodec,
		Format:          rec.Format,
		Privacy:         rec.Privacy.String(),
		PlatformVideoID: rec.PlatformVideoID,
		ErrorMessage:    rec.ErrorMessage,
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       rec.UpdatedAt.Format(time.RFC3339),
	}
}

// toRenderInfoList converts a list of Render entities.
func toRenderInfoList(records []*render.Render) []RenderInfo {
	result := make([]RenderInfo, len(records))
	for i, rec := range records {
		result[i] = toRenderInfo(rec)
	}
	return result
}

// respondServiceError maps service errors onto HTTP statuses and the shared
// error code scheme.
func respondServiceError(c *gin.Context, err error) {
	var validationErr *assembly.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid render request",
			Detail:  validationErr.Error(),
		})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "render not found",
		})
	case errors.Is(err, rendersvc.ErrNotRendered):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    40901,
			Message: err.Error(),
		})
	case errors.Is(err, rendersvc.ErrPublishInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    40902,
			Message: err.Error(),
		})
	case errors.Is(err, rendersvc.ErrAlreadyPublished):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    40903,
			Message: err.Error(),
		})
	case errors.Is(err, rendersvc.ErrNotRunning):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    40904,
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
	}
}
