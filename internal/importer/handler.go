package importer

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vendops/vendops/internal/platform/httpx"
)

// maxUploadBytes caps CSV uploads at 20 MiB.
const maxUploadBytes = 20 << 20

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.ImportSales)
}

// ImportSales accepts a CSV body or a multipart upload under the "file" field.
func (h *Handler) ImportSales(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing file field")
			return
		}
		defer func() { _ = file.Close() }()
		body = file
	}

	summary, err := h.service.Import(r.Context(), body)
	if err != nil {
		if errors.Is(err, ErrMissingTimestamp) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("sales import failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
