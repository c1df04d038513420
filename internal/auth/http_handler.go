package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type LoginReq struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// Login handles POST /users/login
// @Summary User login
// @Description Authenticate user and receive access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /users/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password, req.RememberMe, r.UserAgent(), httpx.ClientIP(r))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			h.logger.Info("login rejected", "request_id", httpx.RequestIDFrom(r))
			httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
			return
		}
		h.logger.Error("login", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	httpx.JSONSuccess(w, r, tokens, nil)
}

type RefreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken handles POST /auth/refresh
// @Summary Refresh access token
// @Description Get a new access token using a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshReq true "Refresh token request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/refresh [post]
func (h *HTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired refresh token", nil)
			return
		}
		h.logger.Error("refresh token", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	httpx.JSONSuccess(w, r, tokens, nil)
}

// Logout handles POST /auth/logout
// @Summary User logout
// @Description Logout and invalidate the current access token
// @Tags auth
// @Security Bearer
// @Success 204 "No Content"
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/logout [post]
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	userID := httpx.UserIDFrom(r)
	if !ok || userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	if err := h.service.Logout(r.Context(), token, userID); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.Unauthorized(w, r)
			return
		}
		h.logger.Error("logout", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	httpx.JSONSuccessNoContent(w)
}
