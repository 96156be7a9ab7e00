package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baatasaari/agenthub-knowledge/internal/api"
	"github.com/baatasaari/agenthub-knowledge/internal/api/handlers"
	"github.com/baatasaari/agenthub-knowledge/internal/api/middleware"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	ConfigHandler    *handlers.ConfigHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Use(middleware.TenantContext)

		r.Post("/config", cfg.ConfigHandler.Configure)
		r.Get("/config", cfg.ConfigHandler.Get)
		r.Get("/stats", cfg.ConfigHandler.Stats)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.KnowledgeHandler.Ingest)
			r.Get("/", cfg.KnowledgeHandler.List)
			r.Delete("/", cfg.KnowledgeHandler.DeleteAll)
			r.Delete("/{documentID}", cfg.KnowledgeHandler.Delete)
		})

		r.Post("/query", cfg.KnowledgeHandler.Query)
	})

	return r
}
