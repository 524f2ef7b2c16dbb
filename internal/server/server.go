package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"newsreel/internal/config"
	"newsreel/internal/handler"
	assetHandler "newsreel/internal/handler/asset"
	renderHandler "newsreel/internal/handler/render"
	"newsreel/internal/pkg/cache"
	"newsreel/internal/pkg/mongodb"
	"newsreel/internal/pkg/renderer"
	"newsreel/internal/pkg/sandbox"
	"newsreel/internal/pkg/storagefactory"
	"newsreel/internal/pkg/youtube"
	assetRepo "newsreel/internal/repository/asset"
	renderRepo "newsreel/internal/repository/render"
	"newsreel/internal/server/middleware"
	"newsreel/internal/service"
	renderService "newsreel/internal/service/render"
)

// Server is the HTTP server plus the connections it owns.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New wires the pipeline's dependency graph and builds the server. MongoDB,
// storage and the sandbox are required; Redis and the platform client are
// optional and their features degrade explicitly when absent.
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")
	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, progress falls back to persisted status")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	store, err := storagefactory.NewStorage(context.Background(), &cfg.Storage)
	if err != nil {
		return nil, err
	}
	log.Info().Str("type", store.GetStorageType()).Msg("storage ready")

	manager, err := sandbox.NewManager(&cfg.Sandbox)
	if err != nil {
		return nil, err
	}
	backend, err := renderer.New(&cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	executor := renderer.NewExecutor(&cfg.Sandbox, &cfg.Pipeline, backend, store,
		func(ctx context.Context, renderID string) (renderer.Session, func(), error) {
			return manager.Acquire(ctx, renderID)
		})

	var platform renderService.Platform
	if cfg.YouTube.ClientID != "" && cfg.YouTube.ClientSecret != "" && cfg.YouTube.RefreshToken != "" {
		client, err := youtube.New(context.Background(), &cfg.YouTube, &cfg.Pipeline)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create platform client, publishing disabled")
		} else {
			platform = renderService.NewYouTubePlatform(client)
			log.Info().Msg("platform client ready")
		}
	} else {
		log.Warn().Msg("platform credentials not configured, publishing disabled")
	}

	repo := renderRepo.NewRenderRepo(mongoClient.Database())
	svc := renderService.NewRenderService(cfg, repo, store, executor, platform, redisCache)
	assetSvc := service.NewAssetService(cfg, assetRepo.NewAssetRepo(mongoClient.Database()), store)

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}
	srv.setupRoutes(svc, assetSvc)

	return srv, nil
}

func (s *Server) setupRoutes(svc renderService.RenderService, assetSvc service.AssetService) {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler(s.mongo, s.redis)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		hdl := renderHandler.NewHandler(svc)

		v1.POST("/renders", hdl.CreateRender)
		v1.GET("/renders", hdl.ListRenders)
		v1.GET("/renders/:render_id", hdl.GetRender)
		v1.GET("/renders/:render_id/progress", hdl.GetProgress)
		v1.GET("/renders/:render_id/artifact-url", hdl.GetArtifactURL)
		v1.POST("/renders/:render_id/publish", hdl.PublishRender)
		v1.POST("/renders/:render_id/cancel", hdl.CancelRender)

		assetHdl := assetHandler.NewHandler(assetSvc)

		v1.POST("/assets", assetHdl.UploadAsset)
		v1.GET("/assets", assetHdl.ListAssets)
		v1.GET("/assets/:asset_id", assetHdl.GetAsset)
		v1.GET("/assets/:asset_id/download-url", assetHdl.GetDownloadURL)
		v1.GET("/assets/:asset_id/download", assetHdl.DownloadAsset)
		v1.DELETE("/assets/:asset_id", assetHdl.DeleteAsset)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// the owned connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine exposes the gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
