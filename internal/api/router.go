package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Atlas/internal/beacon"
	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

func NewRouter(s store.Store, eng *engine.Engine, events beacon.Client, metrics *Metrics, loadSample func(context.Context) error, pcaThreshold float64, authToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(240))

	datasets := NewDatasetsHandler(s, events)
	catalog := NewCatalogHandler(s)
	mappings := NewMappingsHandler(s, events)
	models := NewModelsHandler(s, eng, events, metrics, pcaThreshold)
	results := NewResultsHandler(s, eng, events, metrics)
	onboarding := NewOnboardingHandler(s, loadSample)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(authToken))

		r.Post("/datasets/import", datasets.Import)
		r.Post("/datasets/import-text", datasets.ImportText)
		r.Get("/datasets", datasets.List)
		r.Get("/datasets/{id}", datasets.Get)
		r.Patch("/datasets/{id}", datasets.Rename)
		r.Get("/datasets/{id}/data", datasets.Data)
		r.Put("/datasets/{id}/data", datasets.ReplaceData)
		r.Get("/datasets/{id}/mapping", mappings.Get)
		r.Put("/datasets/{id}/mapping", mappings.Put)

		r.Get("/indicators", catalog.List)
		r.Put("/indicators/{key}", catalog.Upsert)
		r.Delete("/indicators/{key}", catalog.Delete)

		r.Get("/mapping-templates", mappings.ListTemplates)
		r.Put("/mapping-templates/{name}", mappings.UpsertTemplate)
		r.Delete("/mapping-templates/{name}", mappings.DeleteTemplate)

		r.Get("/weight-models", models.List)
		r.Post("/weight-models", models.Train)
		r.Get("/weight-models/{id}", models.Get)

		r.Post("/results", results.Compute)
		r.Get("/results", results.List)
		r.Get("/results/{id}", results.Get)
		r.Get("/results/{id}/rows", results.Rows)
		r.Get("/results/{id}/download", results.Download)

		r.Get("/onboarding/status", onboarding.Status)
		r.Post("/onboarding/sample", onboarding.LoadSample)
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
