package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
	"github.com/skylinehq/skyline/backend/internal/config"
	"github.com/skylinehq/skyline/backend/internal/handler"
	"github.com/skylinehq/skyline/backend/internal/live"
	"github.com/skylinehq/skyline/backend/internal/model/catalog"
	"github.com/skylinehq/skyline/backend/internal/service/ai"
	filesService "github.com/skylinehq/skyline/backend/internal/service/files"
	"github.com/skylinehq/skyline/backend/internal/service/turn"
	"github.com/skylinehq/skyline/backend/internal/store"
	"github.com/skylinehq/skyline/backend/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	st, err := newStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialize auth", zap.Error(err))
	}

	registry := live.NewRegistry(logger)
	scheduler := live.NewHeartbeatScheduler(registry, cfg.Live.HeartbeatInterval, cfg.Live.HeartbeatLifetime, logger)
	registry.OnIdle(scheduler.Stop)
	tracker := live.NewUploadTracker(scheduler, logger)

	modelCatalog := catalog.NewMemoryStore(catalog.Seed())

	blobs, err := filesService.NewLocalStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatal("failed to initialize upload storage", zap.Error(err))
	}

	orchestrator, err := newOrchestrator(ctx, cfg, st, registry, logger)
	if err != nil {
		logger.Warn("continuing without AI functionality", zap.Error(err))
	}

	router := handler.NewRouter(handler.Deps{
		Store:        st,
		Registry:     registry,
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Auth:         authService,
		Catalog:      modelCatalog,
		Blobs:        blobs,
		Extractor:    filesService.PlainTextExtractor{},
		UploadDir:    cfg.Uploads.Dir,
		MaxUpload:    cfg.Uploads.MaxBytes,
		Logger:       logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newStore(cfg config.StorageConfig, logger *zap.Logger) (store.Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("using in-memory storage")
		return store.NewMemory(), nil
	}

	st, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres")
	return st, nil
}

// newOrchestrator builds the model client, tools and turn orchestrator.
// Returns nil when model credentials are absent so the rest of the API still
// serves.
func newOrchestrator(ctx context.Context, cfg *config.Config, st store.Store, registry *live.Registry, logger *zap.Logger) (*turn.Orchestrator, error) {
	if !cfg.AI.Enabled() {
		return nil, errors.New("model credentials not configured")
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	reasoningModel, err := cfg.AI.NewReasoningModel(ctx)
	if err != nil {
		return nil, err
	}
	titleModel, err := cfg.AI.NewTitleModel(ctx)
	if err != nil {
		return nil, err
	}

	toolSet := ai.NewToolSet(logger,
		&ai.CreateDocumentTool{Store: st},
		&ai.UpdateDocumentTool{Store: st},
		&ai.RequestSuggestionsTool{Store: st, Model: titleModel},
		&ai.WeatherTool{},
		&ai.WebSearchTool{},
	)

	aiService, err := ai.NewService(ctx, cfg.AI, chatModel, reasoningModel, titleModel, toolSet.Infos(), logger)
	if err != nil {
		return nil, err
	}

	logger.Info("AI service initialized", zap.String("model", cfg.AI.Model))
	return turn.NewOrchestrator(st, aiService, toolSet, registry, logger), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
