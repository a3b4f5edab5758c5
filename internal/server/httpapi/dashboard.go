package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jatinpathania/University-assignment-approval-system/internal/ctxdata"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// DashboardHandler serves the per-actor status rollup. Responses are
// cached per user for a short TTL; the counts are advisory so a slightly
// stale rollup is acceptable.
type DashboardHandler struct {
	dashboards *service.DashboardService
	cache      Cache
	cacheTTL   time.Duration
}

func NewDashboardHandler(dashboards *service.DashboardService, cache Cache, cacheTTL time.Duration) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, cache: cache, cacheTTL: cacheTTL}
}

func (h *DashboardHandler) RegisterRoutes(r chi.Router, authmw func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authmw)
		r.Get("/", h.stats)
	})
}

func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key := ""
	if userID, ok := ctxdata.GetUserID(ctx); ok {
		key = "dashboard:" + userID
		if data, ok := h.cache.Get(ctx, key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	stats, err := h.dashboards.Stats(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "failed to serialize response")
		return
	}
	if key != "" {
		h.cache.Set(ctx, key, data, h.cacheTTL)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
