package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
	chatHandler "github.com/skylinehq/skyline/backend/internal/handler/chat"
	eventsHandler "github.com/skylinehq/skyline/backend/internal/handler/events"
	filesHandler "github.com/skylinehq/skyline/backend/internal/handler/files"
	modelsHandler "github.com/skylinehq/skyline/backend/internal/handler/models"
	sessionHandler "github.com/skylinehq/skyline/backend/internal/handler/session"
	"github.com/skylinehq/skyline/backend/internal/live"
	middlewarePkg "github.com/skylinehq/skyline/backend/internal/middleware"
	"github.com/skylinehq/skyline/backend/internal/model/catalog"
	filesService "github.com/skylinehq/skyline/backend/internal/service/files"
	"github.com/skylinehq/skyline/backend/internal/service/turn"
	"github.com/skylinehq/skyline/backend/internal/store"
	"github.com/skylinehq/skyline/backend/pkg/utils"
)

// Deps carries everything the router needs to wire the HTTP surface.
type Deps struct {
	Store        store.Store
	Registry     *live.Registry
	Tracker      *live.UploadTracker
	Orchestrator *turn.Orchestrator
	Auth         *auth.Service
	Catalog      catalog.Store
	Blobs        filesService.BlobStore
	Extractor    filesService.Extractor
	UploadDir    string
	MaxUpload    int64
	Logger       *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	session := sessionHandler.New(deps.Auth, deps.Logger)
	models := modelsHandler.New(deps.Catalog)
	events := eventsHandler.New(deps.Registry, deps.Store, deps.Logger)
	files := filesHandler.New(deps.Blobs, deps.Extractor, deps.Tracker, deps.MaxUpload, deps.Logger)

	if deps.UploadDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(deps.UploadDir))))
	}

	r.Route("/api", func(api chi.Router) {
		// Guest minting is the only route reachable without a token.
		session.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(deps.Auth.Middleware)

			models.RegisterRoutes(protected)
			events.RegisterRoutes(protected)
			files.RegisterRoutes(protected)

			if deps.Orchestrator != nil {
				chat := chatHandler.New(deps.Orchestrator, deps.Store, deps.Registry, deps.Catalog, deps.Logger)
				chat.RegisterRoutes(protected)
			} else {
				protected.Post("/chat", func(w http.ResponseWriter, _ *http.Request) {
					utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				})
			}
		})
	})

	return r
}
