// handlers/router.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gewnthar/samsync/models"
	"github.com/gewnthar/samsync/services"
)

// Store is the read side of the record store the API serves from.
type Store interface {
	Ping(ctx context.Context) error
	QueryByScope(ctx context.Context, q models.ScopeQuery) ([]models.Opportunity, error)
	CountByScope(ctx context.Context, q models.ScopeQuery) (int64, error)
	GetOpportunity(ctx context.Context, noticeID string) (*models.Opportunity, error)
	RegionStats(ctx context.Context) ([]models.RegionCount, error)
	ListCheckpoints(ctx context.Context) ([]models.SyncCheckpoint, error)
	ListExportVersions(ctx context.Context) ([]models.ExportVersion, error)
}

// Syncer starts incremental runs on demand.
type Syncer interface {
	RunIncremental(ctx context.Context, req services.IncrementalRequest) (*services.RunReport, error)
}

// Handler serves the HTTP API.
type Handler struct {
	store  Store
	syncer Syncer
}

// NewHandler creates a Handler. syncer may be nil for a read-only API.
func NewHandler(store Store, syncer Syncer) *Handler {
	return &Handler{store: store, syncer: syncer}
}

// NewRouter mounts every route on a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/opportunities", h.ListOpportunities)
			r.Get("/opportunities/{noticeID}", h.GetOpportunity)
			r.Get("/regions", h.ListRegions)
			r.Get("/stats", h.RegionStats)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/checkpoints", h.ListCheckpoints)
			r.Get("/exports", h.ListExports)
			r.Post("/sync/incremental", h.TriggerIncremental)
		})
	})
	return r
}

// Health pings the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondWithJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "database connection error"})
		return
	}
	respondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
