package render

import (
	"context"
	"fmt"
	"time"

	"newsreel/internal/model/render"
)

// ArtifactLink is a presigned download view of one stored artifact.
type ArtifactLink struct {
	RenderID    string
	StorageKey  string
	URL         string
	ExpiresAt   time.Time
	SizeBytes   int64
	ContentType string
}

// ArtifactLink builds a time-limited download URL for the render's artifact.
// Only rendered records have one.
func (s *renderService) ArtifactLink(ctx context.Context, renderID string, expiresIn time.Duration) (*ArtifactLink, error) {
	rec, err := s.repo.FindByID(ctx, renderID)
	if err != nil {
		return nil, err
	}
	if rec.RenderStatus != render.RenderStatusRendered || rec.StorageKey == "" {
		return nil, ErrNotRendered
	}

	info, err := s.store.GetFileInfo(ctx, rec.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("stat artifact %q: %w", rec.StorageKey, err)
	}
	url, err := s.store.GetPresignedDownloadURL(ctx, rec.StorageKey, expiresIn)
	if err != nil {
		return nil, fmt.Errorf("presign artifact %q: %w", rec.StorageKey, err)
	}

	return &ArtifactLink{
		RenderID:    rec.ID,
		StorageKey:  rec.StorageKey,
		URL:         url,
		ExpiresAt:   time.Now().Add(expiresIn),
		SizeBytes:   info.Size,
		ContentType: info.ContentType,
	}, nil
}
