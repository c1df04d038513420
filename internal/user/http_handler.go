package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,password_strength"`
}

// RegisterUser handles POST /users/register
// @Summary Register a new user
// @Description Create a new member account
// @Tags users
// @Accept json
// @Produce json
// @Param request body registerReq true "Registration request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /users/register [post]
func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", "Email already exists", nil)
			return
		}
		h.logger.Error("register user", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	h.logger.Info("user registered", "user_id", newUser.ID)
	httpx.JSONSuccessCreated(w, r, newUser)
}

// GetCurrentUser handles GET /me
// @Summary Get current user
// @Description Get the authenticated user's information
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /me [get]
func (h *HTTPHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	u, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		httpx.Unauthorized(w, r)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}

// GetUser handles GET /users/{id}
// @Summary Get a user
// @Tags users
// @Produce json
// @Security Bearer
// @Param id path string true "User ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/{id} [get]
func (h *HTTPHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != httpx.UserIDFrom(r) && !httpx.IsAdmin(r) {
		httpx.Forbidden(w, r)
		return
	}

	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(w, r, "User not found")
			return
		}
		h.logger.Error("get user", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}

// ListUsers handles GET /users
// @Summary List users (admin)
// @Tags users
// @Produce json
// @Security Bearer
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} httpx.SuccessResponse
// @Router /users [get]
func (h *HTTPHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := h.service.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		h.logger.Error("list users", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, users, map[string]any{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// DeleteUser handles DELETE /users/{id}
// @Summary Delete a user (admin)
// @Tags users
// @Security Bearer
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /users/{id} [delete]
func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == httpx.UserIDFrom(r) {
		httpx.Conflict(w, r, "Cannot delete your own account")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.NotFound(w, r, "User not found")
		case errors.Is(err, ErrInUse):
			httpx.Conflict(w, r, "User has borrow history and cannot be deleted")
		default:
			h.logger.Error("delete user", "error", err, "request_id", httpx.RequestIDFrom(r))
			httpx.InternalError(w, r)
		}
		return
	}

	h.logger.Info("user deleted", "user_id", id, "by", httpx.UserIDFrom(r))
	httpx.JSONSuccessNoContent(w)
}
