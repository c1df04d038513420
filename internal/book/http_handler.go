package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type bookReq struct {
	ISBN            string  `json:"isbn" validate:"required,isbn"`
	Title           string  `json:"title" validate:"required,max=255"`
	Author          string  `json:"author" validate:"required,max=255"`
	Genre           string  `json:"genre" validate:"max=100"`
	Publisher       string  `json:"publisher" validate:"max=255"`
	Description     string  `json:"description"`
	PublicationYear *int    `json:"publication_year" validate:"omitempty,min=0,max=9999"`
	CoverURL        *string `json:"cover_url" validate:"omitempty,url"`
}

func (req bookReq) toBook() Book {
	return Book{
		ISBN:            req.ISBN,
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		Genre:           strings.TrimSpace(req.Genre),
		Publisher:       strings.TrimSpace(req.Publisher),
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		CoverURL:        req.CoverURL,
	}
}

type importReq struct {
	ISBN string `json:"isbn" validate:"required,isbn"`
}

func pagination(r *http.Request) (page, pageSize int) {
	query := r.URL.Query()
	page, _ = strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > maxLimit {
		pageSize = defaultLimit
	}
	return page, pageSize
}

func pageMeta(page, pageSize, total int) map[string]any {
	return map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("book operation failed", "op", op, "error", err, "request_id", httpx.RequestIDFrom(r))
	httpx.InternalError(w, r)
}

// List handles GET /books
// @Summary List books
// @Tags books
// @Produce json
// @Param q query string false "Free text filter"
// @Param genre query string false "Genre"
// @Param author query string false "Author substring"
// @Param available query bool false "Only available or only borrowed books"
// @Param sort query string false "title|author|year|created_at"
// @Param desc query bool false "Descending order"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} httpx.SuccessResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, pageSize := pagination(r)

	params := Query{
		Q:      strings.TrimSpace(query.Get("q")),
		Genre:  query.Get("genre"),
		Author: query.Get("author"),
		Sort:   query.Get("sort"),
		Desc:   query.Get("desc") == "true",
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if v := query.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			httpx.BadRequest(w, r, "available must be true or false")
			return
		}
		params.Available = &available
	}

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.internalError(w, r, "list", err)
		return
	}
	httpx.JSONSuccess(w, r, books, pageMeta(page, pageSize, total))
}

// Search handles GET /books/search?query=
// @Summary Search books
// @Tags books
// @Produce json
// @Param query query string true "Search text"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books/search [get]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("query"))
	if text == "" {
		httpx.BadRequest(w, r, "query is required")
		return
	}
	page, pageSize := pagination(r)

	books, total, err := h.service.Search(r.Context(), text, pageSize, (page-1)*pageSize)
	if err != nil {
		h.internalError(w, r, "search", err)
		return
	}
	httpx.JSONSuccess(w, r, books, pageMeta(page, pageSize, total))
}

// ListAvailable handles GET /books/available
// @Summary List books that can be borrowed
// @Tags books
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /books/available [get]
func (h *HTTPHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	books, total, err := h.service.ListAvailable(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		h.internalError(w, r, "list_available", err)
		return
	}
	httpx.JSONSuccess(w, r, books, pageMeta(page, pageSize, total))
}

// Get handles GET /books/{id}
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get", err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Param request body bookReq true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	b, err := h.service.Create(r.Context(), req.toBook())
	if err != nil {
		h.writeError(w, r, "create", err)
		return
	}
	httpx.JSONSuccessCreated(w, r, b)
}

// Import handles POST /books/import
// @Summary Add a book from Open Library metadata
// @Tags books
// @Accept json
// @Produce json
// @Param request body importReq true "ISBN"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/import [post]
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	b, err := h.service.ImportByISBN(r.Context(), req.ISBN)
	if err != nil {
		h.writeError(w, r, "import", err)
		return
	}
	httpx.JSONSuccessCreated(w, r, b)
}

// Update handles PUT /books/{id}
// @Summary Update a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param request body bookReq true "Book"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	b, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toBook())
	if err != nil {
		h.writeError(w, r, "update", err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /books/{id}
// @Summary Delete a book
// @Tags books
// @Param id path string true "Book ID"
// @Success 204
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete", err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, r, "Book not found")
	case errors.Is(err, ErrMetadataNotFound):
		httpx.NotFound(w, r, "No catalogue entry for this ISBN")
	case errors.Is(err, ErrAlreadyExists):
		httpx.Conflict(w, r, "A book with this ISBN already exists")
	case errors.Is(err, ErrInUse):
		httpx.Conflict(w, r, "Book has borrow history and cannot be deleted")
	default:
		h.internalError(w, r, op, err)
	}
}
