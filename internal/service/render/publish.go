package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"newsreel/internal/model/render"
	"newsreel/internal/pkg/youtube"
)

// PublishOptions carries the platform-facing metadata for one publish.
// Privacy is the externally decided visibility; PrivacyBlocked records the
// decision and forbids any platform call.
type PublishOptions struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     render.Privacy
}

// Publish applies the privacy gate and, unless blocked, delivers the
// artifact in the background. The returned record reflects the publish
// status at return time.
func (s *renderService) Publish(ctx context.Context, renderID string, opts PublishOptions) (*render.Render, error) {
	rec, proceed, err := s.preparePublish(ctx, renderID, opts)
	if err != nil || !proceed {
		return rec, err
	}

	pubCtx, cancel := s.detachedContext()
	go func() {
		defer cancel()
		if err := s.deliver(pubCtx, rec, opts); err != nil {
			log.Error().Str("render_id", rec.ID).Err(err).Msg("publish failed")
		}
	}()
	return rec, nil
}

// PublishAndWait is Publish with delivery running in the caller's context.
func (s *renderService) PublishAndWait(ctx context.Context, renderID string, opts PublishOptions) (*render.Render, error) {
	rec, proceed, err := s.preparePublish(ctx, renderID, opts)
	if err != nil || !proceed {
		return rec, err
	}
	if err := s.deliver(ctx, rec, opts); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, renderID)
}

// preparePublish checks the state machines, records the privacy decision and
// reports whether delivery should run. A blocked decision ends here: the
// record moves to blocked and no platform call is ever made.
func (s *renderService) preparePublish(ctx context.Context, renderID string, opts PublishOptions) (*render.Render, bool, error) {
	if !opts.Privacy.Valid() {
		return nil, false, fmt.Errorf("invalid privacy %q", opts.Privacy)
	}

	rec, err := s.repo.FindByID(ctx, renderID)
	if err != nil {
		return nil, false, err
	}
	if rec.RenderStatus != render.RenderStatusRendered {
		return nil, false, ErrNotRendered
	}
	switch rec.PublishStatus {
	case render.PublishStatusUploading, render.PublishStatusProcessing:
		return nil, false, ErrPublishInFlight
	case render.PublishStatusUploaded:
		return nil, false, ErrAlreadyPublished
	}

	if err := s.repo.SetPrivacy(ctx, renderID, opts.Privacy); err != nil {
		return nil, false, fmt.Errorf("record privacy decision: %w", err)
	}
	rec.Privacy = opts.Privacy

	if opts.Privacy == render.PrivacyBlocked {
		if err := s.repo.UpdatePublishStatus(ctx, renderID, render.PublishStatusBlocked, ""); err != nil {
			return nil, false, fmt.Errorf("record blocked decision: %w", err)
		}
		rec.PublishStatus = render.PublishStatusBlocked
		s.setProgress(ctx, renderID, StageBlocked, 100, "publishing blocked by privacy decision")
		log.Info().Str("render_id", renderID).Msg("publish blocked by privacy decision")
		return rec, false, nil
	}

	if s.platform == nil {
		return nil, false, errors.New("platform delivery is not configured")
	}
	if err := s.repo.UpdatePublishStatus(ctx, renderID, render.PublishStatusUploading, ""); err != nil {
		return nil, false, fmt.Errorf("mark uploading: %w", err)
	}
	rec.PublishStatus = render.PublishStatusUploading
	return rec, true, nil
}

// deliver uploads the stored artifact and waits out platform processing,
// recording the terminal publish status on failure.
func (s *renderService) deliver(ctx context.Context, rec *render.Render, opts PublishOptions) error {
	if err := s.uploadToPlatform(ctx, rec, opts); err != nil {
		s.markPublishFailed(rec.ID, err)
		return err
	}
	return nil
}

func (s *renderService) uploadToPlatform(ctx context.Context, rec *render.Render, opts PublishOptions) error {
	info, err := s.store.GetFileInfo(ctx, rec.StorageKey)
	if err != nil {
		return fmt.Errorf("stat artifact %q: %w", rec.StorageKey, err)
	}
	src, err := s.store.Download(ctx, rec.StorageKey)
	if err != nil {
		return fmt.Errorf("open artifact %q: %w", rec.StorageKey, err)
	}
	defer src.Close()

	meta := youtube.VideoMeta{
		Title:       opts.Title,
		Description: opts.Description,
		Tags:        opts.Tags,
		CategoryID:  opts.CategoryID,
		Privacy:     opts.Privacy,
	}

	s.setProgress(ctx, rec.ID, StageUploading, 20, "uploading to platform")
	sess, err := s.platform.CreateSession(ctx, meta, info.Size)
	if err != nil {
		return fmt.Errorf("create upload session: %w", err)
	}
	videoID, err := sess.Upload(ctx, src)
	if err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}

	if err := s.repo.SetPlatformVideo(ctx, rec.ID, videoID); err != nil {
		return fmt.Errorf("record platform video: %w", err)
	}
	if err := s.repo.UpdatePublishStatus(ctx, rec.ID, render.PublishStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	s.setProgress(ctx, rec.ID, StageProcessing, 70, "platform processing")
	log.Info().
		Str("render_id", rec.ID).
		Str("platform_video_id", videoID).
		Msg("artifact uploaded, awaiting platform processing")

	if err := s.platform.PollProcessing(ctx, videoID); err != nil {
		return fmt.Errorf("platform processing: %w", err)
	}

	if err := s.repo.UpdatePublishStatus(ctx, rec.ID, render.PublishStatusUploaded, ""); err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	s.setProgress(ctx, rec.ID, StageUploaded, 100, "published")
	log.Info().
		Str("render_id", rec.ID).
		Str("platform_video_id", videoID).
		Str("privacy", opts.Privacy.String()).
		Msg("publish completed")
	return nil
}

// markPublishFailed records the terminal publish status on a fresh context.
func (s *renderService) markPublishFailed(renderID string, cause error) {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "publish cancelled"
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()
	if err := s.repo.UpdatePublishStatus(ctx, renderID, render.PublishStatusError, msg); err != nil {
		log.Warn().Str("render_id", renderID).Err(err).Msg("failed to record publish failure")
	}
	s.setProgress(ctx, renderID, StageError, 0, msg)
}
