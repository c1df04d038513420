package session

import (
	"errors"
	"log/slog"
	"net/http"
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

type SessionResponse struct {
	ID         string `json:"id"`
	UserAgent  string `json:"user_agent"`
	IPAddress  string `json:"ip_address"`
	RememberMe bool   `json:"remember_me"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at"`
	ExpiresAt  string `json:"expires_at"`
}

// ListSessions handles GET /me/sessions
// @Summary List user sessions
// @Description Get all active sessions for the authenticated user
// @Tags sessions
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /me/sessions [get]
func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	sessions, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list sessions", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	response := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, SessionResponse{
			ID:         s.ID,
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			RememberMe: s.RememberMe,
			CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
			LastUsedAt: s.LastUsedAt.UTC().Format(time.RFC3339),
			ExpiresAt:  s.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	httpx.JSONSuccess(w, r, response, nil)
}

// DeleteSession handles DELETE /me/sessions/{id}
// @Summary Delete session
// @Description Delete a specific session for the authenticated user
// @Tags sessions
// @Security Bearer
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /me/sessions/{id} [delete]
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	if err := h.service.DeleteForUser(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(w, r, "Session not found")
			return
		}
		h.logger.Error("delete session", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.InternalError(w, r)
		return
	}

	httpx.JSONSuccessNoContent(w)
}
