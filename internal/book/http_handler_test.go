package book

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *MockRepository, *MockMetadataSource) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockRepository(ctrl)
	mockMeta := NewMockMetadataSource(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTPHandler(NewService(mockRepo, mockMeta), logger), mockRepo, mockMeta
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error.Code
}

func TestHTTPHandler_List(t *testing.T) {
	handler, mockRepo, _ := newTestHandler(t)
	testBook := Book{ID: "1", ISBN: "9780134190440", Title: "The Go Programming Language", Available: true}

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, q Query) ([]Book, int, error) {
				assert.Equal(t, 10, q.Limit)
				assert.Equal(t, 10, q.Offset)
				require.NotNil(t, q.Available)
				assert.True(t, *q.Available)
				return []Book{testBook}, 11, nil
			})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books?page=2&page_size=10&available=true", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []Book        `json:"data"`
			Meta map[string]any `json:"meta"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Data, 1)
		assert.EqualValues(t, 2, resp.Meta["total_pages"])
	})

	t.Run("bad available flag", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books?available=maybe", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, 0, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Search(t *testing.T) {
	handler, mockRepo, _ := newTestHandler(t)

	t.Run("requires query", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/books/search", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("passes text to list", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, q Query) ([]Book, int, error) {
				assert.Equal(t, "orwell", q.Q)
				return []Book{}, 0, nil
			})

		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/books/search?query=orwell", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	handler, mockRepo, _ := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), "b1").Return(Book{ID: "b1"}, nil)

		w := httptest.NewRecorder()
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/books/b1", nil), "id", "b1")

		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), "missing").Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/books/missing", nil), "id", "missing")

		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w.Body))
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	handler, mockRepo, _ := newTestHandler(t)

	t.Run("created", func(t *testing.T) {
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b *Book) error {
				assert.Equal(t, "9780134190440", b.ISBN)
				b.ID = "new"
				return nil
			})

		body := `{"isbn":"978-0-13-419044-0","title":"The Go Programming Language","author":"Donovan"}`
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"isbn":"12"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w.Body))
	})

	t.Run("duplicate isbn", func(t *testing.T) {
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(ErrAlreadyExists)

		body := `{"isbn":"9780134190440","title":"Dup","author":"Someone"}`
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body)))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	handler, mockRepo, _ := newTestHandler(t)

	t.Run("no content", func(t *testing.T) {
		mockRepo.EXPECT().Delete(gomock.Any(), "b1").Return(nil)

		w := httptest.NewRecorder()
		handler.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/books/b1", nil), "id", "b1"))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("book with history", func(t *testing.T) {
		mockRepo.EXPECT().Delete(gomock.Any(), "b2").Return(ErrInUse)

		w := httptest.NewRecorder()
		handler.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/books/b2", nil), "id", "b2"))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", errorCode(t, w.Body))
	})
}
