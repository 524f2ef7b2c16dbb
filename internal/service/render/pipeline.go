package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"newsreel/internal/model/render"
	"newsreel/internal/pkg/assembly"
	"newsreel/internal/pkg/renderer"
	"newsreel/internal/pkg/retry"
	"newsreel/internal/pkg/storage"
)

const artifactContentType = "video/mp4"

// ArtifactKey returns the storage key for one render's video artifact.
func ArtifactKey(renderID string) string {
	return "videos/" + renderID + ".mp4"
}

// runRender drives one record through the pipeline and records the terminal
// status on failure. The error comes back for the caller's logging.
func (s *renderService) runRender(ctx context.Context, rec *render.Render) error {
	if err := s.runPipeline(ctx, rec); err != nil {
		s.markRenderFailed(rec.ID, err)
		return err
	}
	return nil
}

func (s *renderService) runPipeline(ctx context.Context, rec *render.Render) error {
	started := time.Now()
	if err := s.repo.UpdateRenderStatus(ctx, rec.ID, render.RenderStatusRendering, ""); err != nil {
		return fmt.Errorf("mark rendering: %w", err)
	}
	s.setProgress(ctx, rec.ID, StagePlanning, 10, "computing timeline")

	req := rec.Request()
	profile := s.profileFor(req.Orientation)
	slots := assembly.BuildTimeline(req.Audio, profile)
	plan, err := assembly.BuildPlan(req, slots, profile)
	if err != nil {
		return fmt.Errorf("build composition plan: %w", err)
	}

	s.setProgress(ctx, rec.ID, StageRendering, 30, "rendering in sandbox")
	artifact, err := s.executor.Execute(ctx, rec.ID, plan)
	if err != nil {
		return err
	}
	defer s.removeSpool(rec.ID, artifact.SpoolPath)

	s.setProgress(ctx, rec.ID, StageStoring, 80, "persisting artifact")
	key, err := s.storeArtifact(ctx, rec.ID, artifact)
	if err != nil {
		return err
	}

	if err := s.repo.SetArtifact(ctx, rec.ID, &render.Artifact{
		StorageKey: key,
		Width:      artifact.Width,
		Height:     artifact.Height,
		DurationMs: artifact.DurationMs,
		FPS:        artifact.FPS,
		VideoCodec: artifact.VideoCodec,
		AudioCodec: artifact.AudioCodec,
		Format:     artifact.Format,
	}); err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	s.setProgress(ctx, rec.ID, StageRendered, 100, "artifact ready")

	log.Info().
		Str("render_id", rec.ID).
		Str("storage_key", key).
		Int64("size_bytes", artifact.SizeBytes).
		Int64("duration_ms", artifact.DurationMs).
		Dur("elapsed", time.Since(started)).
		Msg("render pipeline completed")
	return nil
}

// storeArtifact persists the spool file under the render's storage key,
// using multipart upload when the backend supports it.
func (s *renderService) storeArtifact(ctx context.Context, renderID string, artifact *renderer.RenderArtifact) (string, error) {
	f, err := os.Open(artifact.SpoolPath)
	if err != nil {
		return "", fmt.Errorf("open spool file: %w", err)
	}
	defer f.Close()

	key := ArtifactKey(renderID)
	mp, ok := s.store.(storage.Multiparter)
	if !ok {
		if _, err := s.store.Upload(ctx, key, f, artifactContentType); err != nil {
			return "", fmt.Errorf("upload artifact: %w", err)
		}
		return key, nil
	}

	cfg := storage.MultipartConfig{
		PartSize: s.cfg.Pipeline.PartSizeBytes,
		Retry: retry.Config{
			Attempts:  s.cfg.Pipeline.UploadAttempts,
			BaseDelay: time.Second,
		},
	}
	if _, err := storage.UploadMultipart(ctx, mp, key, artifactContentType, f, artifact.SizeBytes, cfg); err != nil {
		return "", err
	}
	return key, nil
}

// markRenderFailed records the terminal status on a fresh context; the
// pipeline context may already be cancelled.
func (s *renderService) markRenderFailed(renderID string, cause error) {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "render cancelled"
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()
	if err := s.repo.UpdateRenderStatus(ctx, renderID, render.RenderStatusError, msg); err != nil {
		log.Warn().Str("render_id", renderID).Err(err).Msg("failed to record render failure")
	}
	s.setProgress(ctx, renderID, StageError, 0, msg)
}

// removeSpool deletes the extracted artifact once it is persisted or the
// pipeline gave up on it.
func (s *renderService) removeSpool(renderID, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("render_id", renderID).Str("spool", path).Err(err).Msg("failed to remove spool file")
	}
}
