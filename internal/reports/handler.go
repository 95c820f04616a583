package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/vendops/vendops/internal/platform/httpx"
)

const defaultWindowDays = 30

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes exposes one JSON and one CSV route per report. Aggregations are
// the most expensive requests in the system, so they get their own tighter
// rate limit on top of the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))

		r.Get("/machine-roi", h.report(func(ctx context.Context, win Window) (*Report, error) {
			return h.service.MachineROI(ctx, win)
		}))
		r.Get("/route-efficiency", h.report(func(ctx context.Context, win Window) (*Report, error) {
			return h.service.RouteEfficiency(ctx, win)
		}))
		r.Get("/location-profitability", h.report(func(ctx context.Context, win Window) (*Report, error) {
			return h.service.LocationProfitability(ctx, win)
		}))
		r.Get("/processor-fees", h.report(func(ctx context.Context, win Window) (*Report, error) {
			return h.service.ProcessorFees(ctx, win)
		}))
		r.Get("/prospect-funnel", h.report(func(ctx context.Context, win Window) (*Report, error) {
			return h.service.ProspectFunnel(ctx, win)
		}))
		r.Get("/daily-sales-trend", h.report(func(ctx context.Context, win Window) (*Report, error) {
			return h.service.DailySalesTrend(ctx, win)
		}))
		r.Get("/sku-velocity", h.SKUVelocity)

		r.Get("/machine-roi/export", h.export("machine_roi", func(ctx context.Context, win Window) (*Report, error) {
			return h.service.MachineROI(ctx, win)
		}))
		r.Get("/route-efficiency/export", h.export("route_efficiency", func(ctx context.Context, win Window) (*Report, error) {
			return h.service.RouteEfficiency(ctx, win)
		}))
		r.Get("/location-profitability/export", h.export("location_profitability", func(ctx context.Context, win Window) (*Report, error) {
			return h.service.LocationProfitability(ctx, win)
		}))
		r.Get("/processor-fees/export", h.export("processor_fees", func(ctx context.Context, win Window) (*Report, error) {
			return h.service.ProcessorFees(ctx, win)
		}))
		r.Get("/prospect-funnel/export", h.export("prospect_funnel", func(ctx context.Context, win Window) (*Report, error) {
			return h.service.ProspectFunnel(ctx, win)
		}))
		r.Get("/daily-sales-trend/export", h.export("daily_sales_trend", func(ctx context.Context, win Window) (*Report, error) {
			return h.service.DailySalesTrend(ctx, win)
		}))
		r.Get("/sku-velocity/export", h.SKUVelocityExport)
	})
}

type reportFunc func(ctx context.Context, win Window) (*Report, error)

func (h *Handler) report(run reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win, err := windowFromQuery(r)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		report, err := run(r.Context(), win)
		if err != nil {
			h.logger.Error("report failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) export(name string, run reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win, err := windowFromQuery(r)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		report, err := run(r.Context(), win)
		if err != nil {
			h.logger.Error("report export failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		writeCSVHeaders(w, name)
		if err := WriteReportCSV(w, report); err != nil {
			h.logger.Error("csv write failed", slog.Any("error", err))
		}
	}
}

func (h *Handler) SKUVelocity(w http.ResponseWriter, r *http.Request) {
	win, err := windowFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	report, err := h.service.SKUVelocity(r.Context(), win)
	if err != nil {
		h.logger.Error("sku velocity failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) SKUVelocityExport(w http.ResponseWriter, r *http.Request) {
	win, err := windowFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	report, err := h.service.SKUVelocity(r.Context(), win)
	if err != nil {
		h.logger.Error("sku velocity export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	writeCSVHeaders(w, "sku_velocity")
	if err := WriteVelocityCSV(w, report); err != nil {
		h.logger.Error("csv write failed", slog.Any("error", err))
	}
}

func windowFromQuery(r *http.Request) (Window, error) {
	days := defaultWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			return Window{}, fmt.Errorf("days must be between 1 and 365")
		}
		days = parsed
	}
	return WindowOf(days), nil
}

func writeCSVHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s_%s.csv", name, time.Now().UTC().Format("20060102")))
}
