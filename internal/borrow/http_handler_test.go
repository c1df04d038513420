package borrow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func asUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(httpx.ContextWithUser(r.Context(), userID, role))
}

func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func newTestHandler(t *testing.T) (*HTTPHandler, *memStore) {
	svc, store, _ := newTestService(t)
	store.addUser("U1")
	store.addUser("U2")
	store.addBook("B1")
	return NewHTTPHandler(svc, discardLogger()), store
}

func postJSON(path, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestHTTPHandler_BorrowAndReturn(t *testing.T) {
	h, store := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Borrow(w, asUser(postJSON("/borrow", `{"book_id":"B1"}`), "U1", "USER"))
	require.Equal(t, http.StatusCreated, w.Code)

	var rec recordResponse
	require.NoError(t, json.Unmarshal(decode(t, w.Body).Data, &rec))
	assert.Equal(t, "U1", rec.UserID)
	assert.Equal(t, "2026-04-01", rec.BorrowDate)
	assert.Equal(t, "2026-04-15", rec.DueDate)
	assert.Equal(t, StatusBorrowed, rec.Status)
	assert.Nil(t, rec.ReturnDate)
	assert.False(t, store.bookAvailable("B1"))

	w = httptest.NewRecorder()
	h.Borrow(w, asUser(postJSON("/borrow", `{"user_id":"U2","book_id":"B1"}`), "U2", "USER"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w.Body).Error.Code)

	w = httptest.NewRecorder()
	h.Return(w, asUser(postJSON("/return", `{"borrow_id":"`+rec.ID+`"}`), "U2", "USER"))
	assert.Equal(t, http.StatusForbidden, w.Code, "only the borrower or an admin may return")

	w = httptest.NewRecorder()
	h.Return(w, asUser(postJSON("/return", `{"borrow_id":"`+rec.ID+`"}`), "U1", "USER"))
	require.Equal(t, http.StatusOK, w.Code)
	var returned recordResponse
	require.NoError(t, json.Unmarshal(decode(t, w.Body).Data, &returned))
	assert.True(t, returned.Returned)
	assert.Equal(t, StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, store.bookAvailable("B1"))

	w = httptest.NewRecorder()
	h.ReturnByPath(w, asUser(withParams(httptest.NewRequest(http.MethodPost, "/borrow/return/"+rec.ID, nil), "borrowId", rec.ID), "A1", httpx.RoleAdmin))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHTTPHandler_BorrowErrors(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "missing book id",
			req:    asUser(postJSON("/borrow", `{}`), "U1", "USER"),
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "malformed body",
			req:    asUser(postJSON("/borrow", `{`), "U1", "USER"),
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "unknown book",
			req:    asUser(postJSON("/borrow", `{"book_id":"nope"}`), "U1", "USER"),
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "borrow for someone else",
			req:    asUser(postJSON("/borrow", `{"user_id":"U2","book_id":"B1"}`), "U1", "USER"),
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "admin borrows for unknown user",
			req:    asUser(postJSON("/borrow", `{"user_id":"ghost","book_id":"B1"}`), "A1", httpx.RoleAdmin),
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Borrow(w, tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w.Body).Error.Code)
		})
	}
}

func TestHTTPHandler_BorrowByPath(t *testing.T) {
	h, _ := newTestHandler(t)

	r := withParams(httptest.NewRequest(http.MethodPost, "/borrow/U2/B1", nil), "userId", "U2", "bookId", "B1")
	w := httptest.NewRecorder()
	h.BorrowByPath(w, asUser(r, "A1", httpx.RoleAdmin))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHTTPHandler_ReturnUnknown(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Return(w, asUser(postJSON("/return", `{"borrow_id":"r999"}`), "U1", "USER"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_GetOwnership(t *testing.T) {
	h, _ := newTestHandler(t)
	rec, err := h.service.Borrow(context.Background(), "U1", "B1")
	require.NoError(t, err)

	get := func(userID, role string) int {
		r := withParams(httptest.NewRequest(http.MethodGet, "/borrow/"+rec.ID, nil), "id", rec.ID)
		w := httptest.NewRecorder()
		h.Get(w, asUser(r, userID, role))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("U1", "USER"))
	assert.Equal(t, http.StatusForbidden, get("U2", "USER"))
	assert.Equal(t, http.StatusOK, get("A1", httpx.RoleAdmin))
}

func TestHTTPHandler_List(t *testing.T) {
	h, _ := newTestHandler(t)
	_, err := h.service.Borrow(context.Background(), "U1", "B1")
	require.NoError(t, err)

	t.Run("filters by status", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/borrow?status=active", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var records []recordResponse
		require.NoError(t, json.Unmarshal(decode(t, w.Body).Data, &records))
		assert.Len(t, records, 1)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/borrow?status=lost", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects bad cursor", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/borrow?cursor=***", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_MyBorrows(t *testing.T) {
	h, _ := newTestHandler(t)
	_, err := h.service.Borrow(context.Background(), "U1", "B1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.MyBorrows(w, asUser(httptest.NewRequest(http.MethodGet, "/me/borrows?returned=false", nil), "U1", "USER"))
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w.Body)
	assert.EqualValues(t, 1, env.Meta["count"])

	w = httptest.NewRecorder()
	h.MyBorrows(w, asUser(httptest.NewRequest(http.MethodGet, "/me/borrows?returned=nah", nil), "U1", "USER"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPHandler_Stats(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Stats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(decode(t, w.Body).Data, &stats))
	assert.Equal(t, Stats{TotalBooks: 1, AvailableBooks: 1, TotalMembers: 2}, stats)
}
