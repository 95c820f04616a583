package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendops/vendops/internal/observability"
)

// RouteMounter is implemented by every module handler.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams aggregates the handlers mounted on the API router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	ProspectHandler  RouteMounter
	LocationHandler  RouteMounter
	MachineHandler   RouteMounter
	InventoryHandler RouteMounter
	TicketHandler    RouteMounter
	PricingHandler   RouteMounter
	ReconHandler     RouteMounter
	ReportHandler    RouteMounter
	ImportHandler    RouteMounter
	JobHandler       RouteMounter
}

// NewRouter wires the middleware stack and mounts every module under /api,
// behind the operator token. Health and metrics stay outside the auth gate.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  p.Logger,
		Config:  p.Config,
		Metrics: p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(OperatorAuth(p.Config, p.Logger))

		mount := func(pattern string, h RouteMounter) {
			if h == nil {
				return
			}
			api.Route(pattern, h.MountRoutes)
		}
		mount("/prospects", p.ProspectHandler)
		mount("/locations", p.LocationHandler)
		mount("/machines", p.MachineHandler)
		mount("/inventory", p.InventoryHandler)
		mount("/tickets", p.TicketHandler)
		mount("/pricing", p.PricingHandler)
		mount("/recon", p.ReconHandler)
		mount("/reports", p.ReportHandler)
		mount("/import", p.ImportHandler)
		mount("/jobs", p.JobHandler)
	})

	return r
}
