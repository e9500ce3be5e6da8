package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foundline/crucible/internal/approval"
	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/orchestrator"
	"github.com/foundline/crucible/internal/store"
)

func NewRouter(s store.Store, o orchestrator.Client, parser *boundary.Parser, coordinator *approval.Coordinator, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	evidenceHandler := NewEvidenceHandler(s, parser, logger)
	evaluateHandler := NewEvaluateHandler(s, evidenceHandler, o, logger)
	policiesHandler := NewPoliciesHandler(s)
	approvalsHandler := NewApprovalsHandler(coordinator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ActorIDMiddleware)

		r.Get("/projects/{id}/evidence", evidenceHandler.List)
		r.Get("/projects/{id}/evidence/summary", evidenceHandler.Summary)
		r.Get("/projects/{id}/evidence/trend", evidenceHandler.Trend)

		r.Get("/gates/{gate}/policy", policiesHandler.Get)
		r.Post("/gates/{gate}/evaluate", evaluateHandler.Evaluate)

		r.Get("/approvals/{id}", approvalsHandler.Get)
		r.Get("/approvals/{id}/history", approvalsHandler.History)
		r.Patch("/approvals/{id}", approvalsHandler.Decide)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Put("/gates/{gate}/policy", policiesHandler.Put)
			r.Delete("/gates/{gate}/policy", policiesHandler.Delete)
		})
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
