package ingest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHTTPHandler(svc *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

type runReq struct {
	ISBNs []string `json:"isbns" validate:"required,min=1,max=100,dive,isbn"`
}

// Start handles POST /books/import/batch
// @Summary Import many books from Open Library (admin)
// @Description Starts a background run; poll GET /books/import/runs/{id} for per-ISBN outcomes
// @Tags books
// @Accept json
// @Produce json
// @Param request body runReq true "ISBNs"
// @Success 202 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/import/batch [post]
func (h *HTTPHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req runReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	run, err := h.svc.Start(r.Context(), req.ISBNs)
	if err != nil {
		if errors.Is(err, ErrNoISBNs) {
			httpx.BadRequest(w, r, "isbns must contain at least one ISBN")
			return
		}
		h.logger.Error("start import run", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	h.logger.Info("import run started", "run_id", run.ID, "requested", run.Requested)
	w.Header().Set("Location", "/books/import/runs/"+run.ID)
	httpx.JSONSuccessAccepted(w, r, run)
}

// Get handles GET /books/import/runs/{id}
// @Summary Show an import run (admin)
// @Tags books
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/import/runs/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(w, r, "Import run not found")
			return
		}
		h.logger.Error("get import run", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, run, nil)
}
