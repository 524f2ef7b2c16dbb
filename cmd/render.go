package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"newsreel/internal/model/render"
	"newsreel/internal/pkg/mongodb"
	"newsreel/internal/pkg/renderer"
	"newsreel/internal/pkg/sandbox"
	"newsreel/internal/pkg/storagefactory"
	"newsreel/internal/pkg/youtube"
	renderrepo "newsreel/internal/repository/render"
	rendersvc "newsreel/internal/service/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Run one render pipeline from a request manifest",
	Long: `Run the whole assembly pipeline synchronously for a single request
manifest: validate, compute the timeline, render in the sandbox, persist the
artifact to storage, and optionally publish it to the platform.

The manifest is a JSON file with the render request:

  {
    "slides": [{"location_ref": "https://...", "slide_index": 0}, ...],
    "audio": [{"location_ref": "https://...", "slide_index": 0, "duration_ms": 12000}, ...],
    "orientation": "portrait",
    "overlay_date": "2026-08-24"
  }`,
	RunE: runRender,
}

var (
	renderManifest    string
	renderPublish     bool
	renderPrivacy     string
	renderTitle       string
	renderDescription string
	renderTags        []string
	renderCategory    string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	flags := renderCmd.Flags()
	flags.StringVarP(&renderManifest, "manifest", "m", "", "path to the render request manifest (required)")
	flags.BoolVar(&renderPublish, "publish", false, "publish the artifact to the platform after rendering")
	flags.StringVar(&renderPrivacy, "privacy", "private", "privacy decision for publishing (public/unlisted/private/blocked)")
	flags.StringVar(&renderTitle, "title", "", "video title for publishing")
	flags.StringVar(&renderDescription, "description", "", "video description for publishing")
	flags.StringSliceVar(&renderTags, "tags", nil, "video tags for publishing")
	flags.StringVar(&renderCategory, "category", "", "platform category ID (default from config)")

	_ = renderCmd.MarkFlagRequired("manifest")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	req, err := loadManifest(renderManifest)
	if err != nil {
		return err
	}

	privacy := render.Privacy(renderPrivacy)
	if renderPublish && !privacy.Valid() {
		return fmt.Errorf("invalid privacy %q, must be public/unlisted/private/blocked", renderPrivacy)
	}

	// Ctrl-C cancels the pipeline cooperatively: the sandbox is torn down and
	// any in-flight upload session aborted before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		_ = mongoClient.Close(context.Background())
	}()
	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	store, err := storagefactory.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	manager, err := sandbox.NewManager(&cfg.Sandbox)
	if err != nil {
		return fmt.Errorf("failed to create sandbox manager: %w", err)
	}

	backend, err := renderer.New(&cfg.Pipeline)
	if err != nil {
		return fmt.Errorf("failed to create render backend: %w", err)
	}
	executor := renderer.NewExecutor(&cfg.Sandbox, &cfg.Pipeline, backend, store,
		func(ctx context.Context, renderID string) (renderer.Session, func(), error) {
			return manager.Acquire(ctx, renderID)
		})

	var platform rendersvc.Platform
	if renderPublish && privacy != render.PrivacyBlocked {
		client, err := youtube.New(ctx, &cfg.YouTube, &cfg.Pipeline)
		if err != nil {
			return fmt.Errorf("failed to create platform client: %w", err)
		}
		platform = rendersvc.NewYouTubePlatform(client)
	}

	repo := renderrepo.NewRenderRepo(mongoClient.Database())
	svc := rendersvc.NewRenderService(cfg, repo, store, executor, platform, nil)

	rec, err := svc.Render(ctx, req)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	log.Info().
		Str("render_id", rec.ID).
		Str("storage_key", rec.StorageKey).
		Int64("duration_ms", rec.DurationMs).
		Msg("render completed")

	if !renderPublish {
		fmt.Printf("rendered %s -> %s (%dx%d, %.1fs)\n",
			rec.ID, rec.StorageKey, rec.Width, rec.Height, float64(rec.DurationMs)/1000.0)
		return nil
	}

	rec, err = svc.PublishAndWait(ctx, rec.ID, rendersvc.PublishOptions{
		Title:       renderTitle,
		Description: renderDescription,
		Tags:        renderTags,
		CategoryID:  renderCategory,
		Privacy:     privacy,
	})
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	if rec.PublishStatus == render.PublishStatusBlocked {
		fmt.Printf("rendered %s -> %s; publishing blocked by privacy decision\n", rec.ID, rec.StorageKey)
		return nil
	}
	fmt.Printf("rendered %s -> %s; published as %s (%s)\n",
		rec.ID, rec.StorageKey, rec.PlatformVideoID, rec.PublishStatus)
	return nil
}

func loadManifest(path string) (*render.RenderRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var req render.RenderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &req, nil
}
