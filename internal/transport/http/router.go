package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carehub/internal/platform/middleware"
	"carehub/pkg/domain"
)

// Health reports backend liveness for the health endpoint.
type Health interface {
	Healthy() bool
}

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Auth      *AuthHandler
	Admin     *AdminHandler
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	Checks    map[string]Health
}

// NewRouter assembles the full HTTP surface: public auth routes, the
// authenticated logout, the admin subtree behind the ADMIN role, and the
// operational endpoints.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(60 * time.Second))

	deps.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Auth.RegisterAuthenticated(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		r.Use(middleware.RequireRole(domain.RoleAdmin, deps.Logger))
		deps.Admin.Register(r)
	})

	r.Get("/healthz", healthHandler(deps.Checks))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(checks map[string]Health) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil || check.Healthy() {
				continue
			}
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body[name] = "down"
		}
		writeJSON(w, status, body)
	}
}
