package renderer

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"newsreel/internal/config"
	"newsreel/internal/pkg/assembly"
	"newsreel/internal/pkg/retry"
	"newsreel/internal/pkg/storage"
)

const (
	defaultFetchConcurrency = 4
	defaultMaxAssetBytes    = 256 << 20
)

// AcquireFunc hands out a session for one render plus its release func.
type AcquireFunc func(ctx context.Context, renderID string) (Session, func(), error)

// RenderArtifact is the extracted, verified output. The spool file belongs to
// the caller, including its removal.
type RenderArtifact struct {
	SpoolPath  string
	SizeBytes  int64
	Width      int
	Height     int
	DurationMs int64
	FPS        int
	VideoCodec string
	AudioCodec string
	Format     string
}

// Executor runs one composition plan end to end inside a sandbox session:
// prefetch assets, render, verify, extract. The session is torn down on every
// exit path.
type Executor struct {
	acquire AcquireFunc
	backend Renderer
	store   storage.Storage
	client  *http.Client

	fetchConcurrency int
	maxAssetBytes    int64
	fetchRetry       retry.Config
	renderTimeout    time.Duration
	toleranceSec     float64
}

// NewExecutor wires an executor from configuration. store resolves
// locationRefs that are storage keys; URL refs go through plain HTTP.
func NewExecutor(sandboxCfg *config.SandboxConfig, pipelineCfg *config.PipelineConfig, backend Renderer, store storage.Storage, acquire AcquireFunc) *Executor {
	return &Executor{
		acquire:          acquire,
		backend:          backend,
		store:            store,
		client:           &http.Client{Timeout: 2 * time.Minute},
		fetchConcurrency: sandboxCfg.FetchConcurrency,
		maxAssetBytes:    sandboxCfg.MaxAssetBytes,
		fetchRetry: retry.Config{
			Attempts:  sandboxCfg.FetchAttempts,
			BaseDelay: sandboxCfg.RetryBaseDelay,
			MaxDelay:  sandboxCfg.RetryMaxDelay,
		},
		renderTimeout: pipelineCfg.RenderTimeout,
		toleranceSec:  pipelineCfg.DurationToleranceSec,
	}
}

// Execute renders the plan and returns the extracted artifact. Engine
// failures come back as EngineError and are not retried here.
func (e *Executor) Execute(ctx context.Context, renderID string, plan *assembly.CompositionPlan) (*RenderArtifact, error) {
	sess, release, err := e.acquire(ctx, renderID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.prefetch(ctx, sess, plan); err != nil {
		return nil, err
	}

	renderCtx := ctx
	if e.renderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, e.renderTimeout)
		defer cancel()
	}
	log.Info().
		Str("render_id", renderID).
		Int("slides", len(plan.Slides)).
		Float64("total_duration_sec", plan.TotalDurationSec).
		Msg("render started")
	if err := e.backend.Render(renderCtx, sess, plan); err != nil {
		return nil, err
	}

	info, err := VerifyArtifact(ctx, sess, plan, e.toleranceSec)
	if err != nil {
		return nil, err
	}

	artifact, err := e.extract(ctx, sess, plan, info)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("render_id", renderID).
		Int64("size_bytes", artifact.SizeBytes).
		Int64("duration_ms", artifact.DurationMs).
		Msg("render extracted")
	return artifact, nil
}

// prefetch pulls every asset into the session working directory, bounded
// concurrency with per-asset retries.
func (e *Executor) prefetch(ctx context.Context, sess Session, plan *assembly.CompositionPlan) error {
	type asset struct {
		name string
		ref  string
	}
	assets := make([]asset, 0, len(plan.Slides)+len(plan.AudioTrack))
	for _, slide := range plan.Slides {
		assets = append(assets, asset{name: slide.FileName, ref: slide.SourceRef})
	}
	for _, clip := range plan.AudioTrack {
		assets = append(assets, asset{name: clip.FileName, ref: clip.SourceRef})
	}

	limit := e.fetchConcurrency
	if limit <= 0 {
		limit = defaultFetchConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, a := range assets {
		g.Go(func() error {
			if err := e.fetchAsset(gctx, sess, a.name, a.ref); err != nil {
				return fmt.Errorf("fetch %s: %w", a.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Executor) fetchAsset(ctx context.Context, sess Session, name, ref string) error {
	return retry.Do(ctx, e.fetchRetry, "asset_fetch", func(ctx context.Context) error {
		data, err := e.readSource(ctx, ref)
		if err != nil {
			return err
		}
		if err := sess.WriteFile(ctx, name, data); err != nil {
			return retry.Transient(err)
		}
		log.Debug().Str("asset", name).Int("bytes", len(data)).Msg("asset staged")
		return nil
	})
}

func (e *Executor) readSource(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return e.readHTTP(ctx, ref)
	}
	rc, err := e.store.Download(ctx, ref)
	if err != nil {
		return nil, retry.Transient(err)
	}
	defer rc.Close()
	return e.boundedRead(rc, ref)
}

func (e *Executor) readHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, retry.Transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return e.boundedRead(resp.Body, ref)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.Transient(fmt.Errorf("asset source returned %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("asset source returned %d", resp.StatusCode)
	}
}

func (e *Executor) boundedRead(r io.Reader, ref string) ([]byte, error) {
	max := e.maxAssetBytes
	if max <= 0 {
		max = defaultMaxAssetBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, retry.Transient(err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("asset %s exceeds the %d byte limit", ref, max)
	}
	return data, nil
}

// extract spools the verified output to a local temp file.
func (e *Executor) extract(ctx context.Context, sess Session, plan *assembly.CompositionPlan, info *ArtifactInfo) (*RenderArtifact, error) {
	spool, err := os.CreateTemp("", "render_*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	written, err := sess.DownloadFile(ctx, plan.OutputFile, spool)
	if err != nil {
		spool.Close()
		os.Remove(spool.Name())
		return nil, fmt.Errorf("extract artifact: %w", err)
	}
	if err := spool.Close(); err != nil {
		os.Remove(spool.Name())
		return nil, fmt.Errorf("close spool file: %w", err)
	}
	if info.SizeBytes > 0 && written != info.SizeBytes {
		os.Remove(spool.Name())
		return nil, fmt.Errorf("extracted %d bytes, container reports %d", written, info.SizeBytes)
	}

	return &RenderArtifact{
		SpoolPath:  spool.Name(),
		SizeBytes:  written,
		Width:      info.Width,
		Height:     info.Height,
		DurationMs: int64(math.Round(info.DurationSec * 1000)),
		FPS:        plan.FPS,
		VideoCodec: info.VideoCodec,
		AudioCodec: info.AudioCodec,
		Format:     info.Format,
	}, nil
}
