// Package httpapi exposes the entity services over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/auth"
	"github.com/rpattn/billingapi/internal/export"
	"github.com/rpattn/billingapi/internal/ingestion"
	"github.com/rpattn/billingapi/internal/middleware"
	"github.com/rpattn/billingapi/internal/repository"
	"github.com/rpattn/billingapi/internal/schema"
	"github.com/rpattn/billingapi/internal/service"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the router is built from. Metrics and
// CORSOrigins are optional.
type Deps struct {
	Registry        *schema.Registry
	Services        *service.Set
	Store           repository.Store
	Authenticator   auth.Authenticator
	Exporter        *export.Service
	Importer        *ingestion.Service
	MaxUploadBytes  int64
	DefaultPageSize int
	Metrics         *middleware.Metrics
	CORSOrigins     []string
	Logger          *zap.Logger
}

// API holds the handlers behind the router.
type API struct {
	registry        *schema.Registry
	services        *service.Set
	exporter        *export.Handler
	importer        *ingestion.Handler
	defaultPageSize int
	logger          *zap.Logger
}

// NewRouter wires every route:
//
//	GET    /api/schemas
//	GET    /api/{entity}            list
//	POST   /api/{entity}            create
//	GET    /api/{entity}/export     csv or xlsx download
//	POST   /api/{entity}/import     multipart csv or xlsx upload
//	GET    /api/{entity}/{id}       read one
//	PUT    /api/{entity}/{id}       replace
//	PATCH  /api/{entity}/{id}       json patch
//	DELETE /api/{entity}/{id}       delete
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{
		registry:        deps.Registry,
		services:        deps.Services,
		defaultPageSize: deps.DefaultPageSize,
		logger:          logger,
	}
	if a.defaultPageSize <= 0 {
		a.defaultPageSize = 10
	}
	a.exporter = export.NewHTTPHandler(deps.Exporter, a.writeError)
	a.importer = ingestion.NewHTTPHandler(deps.Importer, deps.MaxUploadBytes, a.writeError)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument)
	}
	r.Use(middleware.LoggingMiddleware(logger))
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
		}).Handler)
	}

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Authenticator, a.writeError))
		r.Use(middleware.DataLoaderMiddleware(deps.Store, deps.Registry))

		r.Get("/schemas", a.schemas)
		r.Route("/{entity}", func(r chi.Router) {
			r.Use(a.withService)
			r.Get("/", a.list)
			r.Post("/", a.create)
			r.Get("/export", a.export)
			r.Post("/import", a.importFile)
			r.Get("/{id}", a.getByID)
			r.Put("/{id}", a.update)
			r.Patch("/{id}", a.patch)
			r.Delete("/{id}", a.delete)
		})
	})
	return r
}
