package render

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"newsreel/internal/model/render"
	"newsreel/internal/pkg/cache"
)

// Pipeline stages reported to polling clients.
const (
	StagePending    = "pending"
	StagePlanning   = "planning"
	StageRendering  = "rendering"
	StageStoring    = "storing"
	StageRendered   = "rendered"
	StageUploading  = "uploading"
	StageProcessing = "processing"
	StageUploaded   = "uploaded"
	StageBlocked    = "blocked"
	StageError      = "error"
)

// Progress is the cached pipeline position for one render.
type Progress struct {
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// setProgress caches the pipeline position. Progress is best effort: a cache
// failure is logged and never interrupts the pipeline.
func (s *renderService) setProgress(ctx context.Context, renderID, stage string, percent int, message string) {
	if s.cache == nil {
		return
	}
	p := &Progress{
		Stage:     stage,
		Percent:   percent,
		Message:   message,
		UpdatedAt: time.Now(),
	}
	ttl := s.cfg.Redis.ProgressTTL
	if ttl <= 0 {
		ttl = cache.DefaultProgressTTL
	}
	if err := s.cache.Set(ctx, cache.RenderProgressKey(renderID), p, ttl); err != nil {
		log.Debug().Str("render_id", renderID).Err(err).Msg("failed to cache progress")
	}
}

// GetProgress reads the cached position, deriving a coarse one from the
// persisted statuses when the cache has nothing.
func (s *renderService) GetProgress(ctx context.Context, renderID string) (*Progress, error) {
	if s.cache != nil {
		var p Progress
		err := s.cache.Get(ctx, cache.RenderProgressKey(renderID), &p)
		if err == nil {
			return &p, nil
		}
		if !errors.Is(err, goredis.Nil) {
			log.Debug().Str("render_id", renderID).Err(err).Msg("progress cache read failed")
		}
	}

	rec, err := s.repo.FindByID(ctx, renderID)
	if err != nil {
		return nil, err
	}
	return progressFromRecord(rec), nil
}

func progressFromRecord(rec *render.Render) *Progress {
	p := &Progress{UpdatedAt: rec.UpdatedAt}
	switch rec.RenderStatus {
	case render.RenderStatusPending:
		p.Stage = StagePending
	case render.RenderStatusRendering:
		p.Stage, p.Percent = StageRendering, 50
	case render.RenderStatusError:
		p.Stage, p.Message = StageError, rec.ErrorMessage
	case render.RenderStatusRendered:
		p.Stage, p.Percent = StageRendered, 100
		switch rec.PublishStatus {
		case render.PublishStatusUploading:
			p.Stage, p.Percent = StageUploading, 20
		case render.PublishStatusProcessing:
			p.Stage, p.Percent = StageProcessing, 70
		case render.PublishStatusUploaded:
			p.Stage, p.Percent = StageUploaded, 100
		case render.PublishStatusBlocked:
			p.Stage, p.Percent = StageBlocked, 100
		case render.PublishStatusError:
			p.Stage, p.Percent, p.Message = StageError, 0, rec.ErrorMessage
		}
	}
	return p
}
