package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

type RouterDeps struct {
	Reviews    *service.ReviewService
	Users      *service.UserService
	Auth       *service.AuthService
	Dashboards *service.DashboardService
	Cache      Cache
	CacheTTL   time.Duration
	Logger     *logger.Logger
}

func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(deps.Logger))
	r.Use(func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, maxUploadMemory)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	authmw := NewAuthMiddleware(deps.Auth)

	r.Route("/assignments", func(r chi.Router) {
		NewAssignmentHandler(deps.Reviews).RegisterRoutes(r, authmw)
	})
	r.Route("/users", func(r chi.Router) {
		NewUserHandler(deps.Users, deps.Auth).RegisterRoutes(r, authmw)
	})
	r.Route("/dashboard", func(r chi.Router) {
		NewDashboardHandler(deps.Dashboards, deps.Cache, deps.CacheTTL).RegisterRoutes(r, authmw)
	})

	return r
}
