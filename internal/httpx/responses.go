package httpx

import (
	"encoding/json"
	"net/http"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   ErrorResponseBody `json:"error"`
	Meta    any               `json:"meta,omitempty"`
}

type ErrorResponseBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// buildMeta merges the request id into customMeta.
func buildMeta(r *http.Request, customMeta map[string]any) map[string]any {
	requestID := ""
	if r != nil {
		requestID = RequestIDFrom(r)
	}
	if requestID == "" && len(customMeta) == 0 {
		return nil
	}
	meta := make(map[string]any, len(customMeta)+1)
	for k, v := range customMeta {
		meta[k] = v
	}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	return meta
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func JSONSuccess(w http.ResponseWriter, r *http.Request, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    buildMeta(r, meta),
	})
}

func JSONSuccessCreated(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusCreated, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    buildMeta(r, nil),
	})
}

func JSONSuccessAccepted(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusAccepted, SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    buildMeta(r, nil),
	})
}

func JSONSuccessNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func JSONError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string, details []ErrorDetail) {
	writeJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error: ErrorResponseBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: buildMeta(r, nil),
	})
}

// Common error shortcuts used by every handler.

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
}

func Forbidden(w http.ResponseWriter, r *http.Request) {
	JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	JSONError(w, r, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func Conflict(w http.ResponseWriter, r *http.Request, message string) {
	JSONError(w, r, http.StatusConflict, "CONFLICT", message, nil)
}

func InternalError(w http.ResponseWriter, r *http.Request) {
	JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
