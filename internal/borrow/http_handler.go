package borrow

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

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

type borrowReq struct {
	// UserID defaults to the caller. Only admins may borrow for someone else.
	UserID string `json:"user_id"`
	BookID string `json:"book_id" validate:"required"`
}

type returnReq struct {
	BorrowID string `json:"borrow_id" validate:"required"`
}

// recordResponse is the wire form of a Record with the derived fields filled in.
type recordResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	BookID     string  `json:"book_id"`
	BorrowDate string  `json:"borrow_date"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	Returned   bool    `json:"returned"`
	Overdue    bool    `json:"overdue"`
	Status     Status  `json:"status"`
}

func toResponse(r Record, now time.Time) recordResponse {
	resp := recordResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		BookID:     r.BookID,
		BorrowDate: r.BorrowDate.Format(time.DateOnly),
		DueDate:    r.DueDate.Format(time.DateOnly),
		Returned:   r.Returned,
		Overdue:    r.IsOverdue(now),
		Status:     r.Status(now),
	}
	if r.ReturnDate != nil {
		d := r.ReturnDate.Format(time.DateOnly)
		resp.ReturnDate = &d
	}
	return resp
}

func (h *HTTPHandler) toResponses(records []Record) []recordResponse {
	now := h.service.Now()
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toResponse(r, now))
	}
	return out
}

// Borrow handles POST /borrow
// @Summary Borrow a book
// @Tags borrow
// @Accept json
// @Produce json
// @Param request body borrowReq true "Borrow request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /borrow [post]
func (h *HTTPHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	h.borrow(w, r, req.UserID, req.BookID)
}

// BorrowByPath handles POST /borrow/{userId}/{bookId}
// @Summary Borrow a book (path form)
// @Tags borrow
// @Produce json
// @Param userId path string true "User ID"
// @Param bookId path string true "Book ID"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /borrow/{userId}/{bookId} [post]
func (h *HTTPHandler) BorrowByPath(w http.ResponseWriter, r *http.Request) {
	h.borrow(w, r, chi.URLParam(r, "userId"), chi.URLParam(r, "bookId"))
}

func (h *HTTPHandler) borrow(w http.ResponseWriter, r *http.Request, userID, bookID string) {
	caller := httpx.UserIDFrom(r)
	if userID == "" {
		userID = caller
	}
	if userID != caller && !httpx.IsAdmin(r) {
		httpx.Forbidden(w, r)
		return
	}

	rec, err := h.service.Borrow(r.Context(), userID, bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, toResponse(rec, h.service.Now()))
}

// Return handles POST /return
// @Summary Return a borrowed book
// @Tags borrow
// @Accept json
// @Produce json
// @Param request body returnReq true "Return request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /return [post]
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	h.returnBook(w, r, req.BorrowID)
}

// ReturnByPath handles POST /borrow/return/{borrowId}
// @Summary Return a borrowed book (path form)
// @Tags borrow
// @Produce json
// @Param borrowId path string true "Borrow record ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /borrow/return/{borrowId} [post]
func (h *HTTPHandler) ReturnByPath(w http.ResponseWriter, r *http.Request) {
	h.returnBook(w, r, chi.URLParam(r, "borrowId"))
}

func (h *HTTPHandler) returnBook(w http.ResponseWriter, r *http.Request, borrowID string) {
	if !httpx.IsAdmin(r) {
		rec, err := h.service.Get(r.Context(), borrowID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if rec.UserID != httpx.UserIDFrom(r) {
			httpx.Forbidden(w, r)
			return
		}
	}

	rec, err := h.service.Return(r.Context(), borrowID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(rec, h.service.Now()), nil)
}

// Get handles GET /borrow/{id}
// @Summary Get a borrow record
// @Tags borrow
// @Produce json
// @Param id path string true "Borrow record ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /borrow/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !httpx.IsAdmin(r) && rec.UserID != httpx.UserIDFrom(r) {
		httpx.Forbidden(w, r)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(rec, h.service.Now()), nil)
}

// List handles GET /borrow
// @Summary List borrow records (admin)
// @Tags borrow
// @Produce json
// @Param status query string false "active|borrowed|returned|overdue"
// @Param user_id query string false "Filter by user"
// @Param cursor query string false "Opaque cursor from meta.next_cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /borrow [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, ok := ParseStatus(query.Get("status"))
	if !ok {
		httpx.BadRequest(w, r, "status must be one of active, borrowed, returned, overdue")
		return
	}
	limit, _ := strconv.Atoi(query.Get("limit"))

	records, next, err := h.service.List(r.Context(), query.Get("user_id"), status, query.Get("cursor"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	meta := map[string]any{"count": len(records)}
	if next != "" {
		meta["next_cursor"] = next
	}
	httpx.JSONSuccess(w, r, h.toResponses(records), meta)
}

// Overdue handles GET /borrow/overdue
// @Summary List overdue loans (admin)
// @Tags borrow
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /borrow/overdue [get]
func (h *HTTPHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Overdue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, h.toResponses(records), map[string]any{"count": len(records)})
}

// MyBorrows handles GET /me/borrows
// @Summary List the caller's borrow records
// @Tags borrow
// @Produce json
// @Param returned query bool false "Only returned (true) or only active (false) records"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /me/borrows [get]
func (h *HTTPHandler) MyBorrows(w http.ResponseWriter, r *http.Request) {
	var returned *bool
	if v := r.URL.Query().Get("returned"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httpx.BadRequest(w, r, "returned must be true or false")
			return
		}
		returned = &b
	}

	records, err := h.service.ListByUser(r.Context(), httpx.UserIDFrom(r), returned)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, h.toResponses(records), map[string]any{"count": len(records)})
}

// Stats handles GET /stats
// @Summary Library dashboard counters (admin)
// @Tags borrow
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /stats [get]
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, stats, nil)
}

var errorMessages = map[error]string{
	ErrUserNotFound:    "User not found",
	ErrBookNotFound:    "Book not found",
	ErrRecordNotFound:  "Borrow record not found",
	ErrBookUnavailable: "Book is already on loan",
	ErrAlreadyReturned: "Book has already been returned",
}

func message(err error) string {
	for target, msg := range errorMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return err.Error()
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidCursor):
		httpx.BadRequest(w, r, "Invalid cursor")
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, r, message(err))
	case errors.Is(err, ErrConflict):
		httpx.Conflict(w, r, message(err))
	default:
		h.logger.Error("borrow request failed", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
	}
}
