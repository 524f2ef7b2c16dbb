package render

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"newsreel/internal/config"
	"newsreel/internal/model/render"
	"newsreel/internal/pkg/assembly"
	"newsreel/internal/pkg/cache"
	"newsreel/internal/pkg/id"
	"newsreel/internal/pkg/renderer"
	"newsreel/internal/pkg/storage"
	"newsreel/internal/pkg/youtube"
	renderrepo "newsreel/internal/repository/render"
)

// statusWriteTimeout bounds terminal status writes that run on a fresh
// context after the pipeline context is gone.
const statusWriteTimeout = 10 * time.Second

var (
	// ErrNotRunning means the render has no in-flight pipeline to cancel.
	ErrNotRunning = errors.New("render is not running")
	// ErrNotRendered means publishing was requested before an artifact exists.
	ErrNotRendered = errors.New("render has no artifact yet")
	// ErrPublishInFlight means an upload or processing poll is already running.
	ErrPublishInFlight = errors.New("publish already in progress")
	// ErrAlreadyPublished means the render already has a platform video ID.
	ErrAlreadyPublished = errors.New("render is already published")
)

// RenderService drives the assembly pipeline and platform delivery for
// render records.
type RenderService interface {
	// StartRender validates the request, persists a pending record and runs
	// the pipeline in the background. Returns the accepted record.
	StartRender(ctx context.Context, req *render.RenderRequest) (*render.Render, error)

	// Render runs the whole pipeline synchronously, for one-shot invocations.
	Render(ctx context.Context, req *render.RenderRequest) (*render.Render, error)

	// GetRender looks up one render record.
	GetRender(ctx context.Context, renderID string) (*render.Render, error)

	// ListRenders pages through render records, newest first, optionally
	// filtered by render status.
	ListRenders(ctx context.Context, status string, limit, offset int) ([]*render.Render, int64, error)

	// GetProgress reports the cached pipeline position, falling back to a
	// status-derived estimate when no cache entry exists.
	GetProgress(ctx context.Context, renderID string) (*Progress, error)

	// ArtifactLink returns a time-limited download URL for the stored
	// artifact, with its storage metadata.
	ArtifactLink(ctx context.Context, renderID string, expiresIn time.Duration) (*ArtifactLink, error)

	// Publish records the privacy decision and, unless it is blocked,
	// delivers the artifact to the platform in the background.
	Publish(ctx context.Context, renderID string, opts PublishOptions) (*render.Render, error)

	// PublishAndWait is Publish with synchronous delivery, for one-shot
	// invocations.
	PublishAndWait(ctx context.Context, renderID string, opts PublishOptions) (*render.Render, error)

	// CancelRender aborts the in-flight pipeline for renderID.
	CancelRender(ctx context.Context, renderID string) error
}

// Executor runs the sandbox render for one composition plan.
type Executor interface {
	Execute(ctx context.Context, renderID string, plan *assembly.CompositionPlan) (*renderer.RenderArtifact, error)
}

// PlatformUploader pushes one artifact's bytes through an upload session and
// returns the durable platform video ID.
type PlatformUploader interface {
	Upload(ctx context.Context, src io.Reader) (string, error)
}

// Platform is the slice of the video platform the publish flow needs.
type Platform interface {
	CreateSession(ctx context.Context, meta youtube.VideoMeta, totalBytes int64) (PlatformUploader, error)
	PollProcessing(ctx context.Context, videoID string) error
}

// youtubePlatform adapts *youtube.Client to the Platform seam.
type youtubePlatform struct {
	client *youtube.Client
}

// NewYouTubePlatform wraps the platform client for the publish flow.
func NewYouTubePlatform(client *youtube.Client) Platform {
	return &youtubePlatform{client: client}
}

func (p *youtubePlatform) CreateSession(ctx context.Context, meta youtube.VideoMeta, totalBytes int64) (PlatformUploader, error) {
	sess, err := p.client.CreateSession(ctx, meta, totalBytes)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *youtubePlatform) PollProcessing(ctx context.Context, videoID string) error {
	return p.client.PollProcessing(ctx, videoID)
}

// renderService is the production implementation.
type renderService struct {
	cfg      *config.Config
	repo     renderrepo.RenderRepository
	store    storage.Storage
	executor Executor
	platform Platform // nil when platform delivery is not configured
	cache    *cache.RedisCache

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewRenderService creates the render service. platform and progressCache
// may be nil; the matching features then degrade explicitly.
func NewRenderService(
	cfg *config.Config,
	repo renderrepo.RenderRepository,
	store storage.Storage,
	executor Executor,
	platform Platform,
	progressCache *cache.RedisCache,
) RenderService {
	return &renderService{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		executor: executor,
		platform: platform,
		cache:    progressCache,
		running:  make(map[string]context.CancelFunc),
	}
}

// StartRender validates, persists and launches the pipeline asynchronously.
func (s *renderService) StartRender(ctx context.Context, req *render.RenderRequest) (*render.Render, error) {
	rec, err := s.createRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := s.detachedContext()
	s.track(rec.ID, cancel)
	go func() {
		defer s.untrack(rec.ID)
		defer cancel()
		if err := s.runRender(runCtx, rec); err != nil {
			log.Error().Str("render_id", rec.ID).Err(err).Msg("render pipeline failed")
		}
	}()

	return rec, nil
}

// Render validates, persists and runs the pipeline in the caller's context.
func (s *renderService) Render(ctx context.Context, req *render.RenderRequest) (*render.Render, error) {
	rec, err := s.createRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.runRender(ctx, rec); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, rec.ID)
}

func (s *renderService) createRecord(ctx context.Context, req *render.RenderRequest) (*render.Render, error) {
	if err := assembly.ValidateRequest(req); err != nil {
		return nil, err
	}
	rec := &render.Render{
		ID:          id.New(),
		Slides:      req.Slides,
		Audio:       req.Audio,
		Orientation: req.Orientation,
		OverlayDate: req.OverlayDate,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	log.Info().
		Str("render_id", rec.ID).
		Int("slides", len(rec.Slides)).
		Str("orientation", rec.Orientation.String()).
		Msg("render accepted")
	return rec, nil
}

// GetRender looks up one render record.
func (s *renderService) GetRender(ctx context.Context, renderID string) (*render.Render, error) {
	return s.repo.FindByID(ctx, renderID)
}

// ListRenders pages through render records.
func (s *renderService) ListRenders(ctx context.Context, status string, limit, offset int) ([]*render.Render, int64, error) {
	return s.repo.FindAll(ctx, status, limit, offset)
}

// CancelRender cancels the pipeline context registered for renderID. The
// pipeline observes the cancellation, tears down its sandbox and records the
// terminal status itself.
func (s *renderService) CancelRender(ctx context.Context, renderID string) error {
	s.mu.Lock()
	cancel, ok := s.running[renderID]
	s.mu.Unlock()
	if !ok {
		if _, err := s.repo.FindByID(ctx, renderID); err != nil {
			return err
		}
		return ErrNotRunning
	}
	cancel()
	log.Info().Str("render_id", renderID).Msg("render cancellation requested")
	return nil
}

func (s *renderService) track(renderID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[renderID] = cancel
}

func (s *renderService) untrack(renderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, renderID)
}

// detachedContext outlives the request that launched the work, bounded by
// the configured pipeline ceiling.
func (s *renderService) detachedContext() (context.Context, context.CancelFunc) {
	if t := s.cfg.Pipeline.PipelineTimeout; t > 0 {
		return context.WithTimeout(context.Background(), t)
	}
	return context.WithCancel(context.Background())
}

// profileFor resolves the output profile for one orientation from the
// centralized pipeline config.
func (s *renderService) profileFor(orientation render.Orientation) assembly.Profile {
	p := s.cfg.Pipeline
	frame := p.Portrait
	if orientation == render.OrientationLandscape {
		frame = p.Landscape
	}
	return assembly.Profile{
		Width:         frame.Width,
		Height:        frame.Height,
		FPS:           p.FPS,
		TransitionSec: p.TransitionSec,
		ZoomMax:       p.ZoomMax,
		OverlayLocale: p.OverlayLocale,
	}
}
