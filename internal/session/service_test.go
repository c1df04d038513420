package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
)

func TestService_DeleteForUser(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, NewMockBlacklistRepository(ctrl))

	repo.EXPECT().DeleteForUser(ctx, "u1", "s1").Return(nil)
	repo.EXPECT().DeleteForUser(ctx, "u1", "s2").Return(ErrNotFound)

	require.NoError(t, svc.DeleteForUser(ctx, "u1", "s1"))
	assert.ErrorIs(t, svc.DeleteForUser(ctx, "u1", "s2"), ErrNotFound)
}

func TestService_IsBlacklisted(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	blacklist := NewMockBlacklistRepository(ctrl)
	svc := NewService(NewMockRepository(ctrl), blacklist)

	exp := time.Now().Add(time.Minute)
	blacklist.EXPECT().Revoke(ctx, "jti-1", "u1", exp).Return(nil)
	blacklist.EXPECT().IsRevoked(ctx, "jti-1").Return(true, nil)

	require.NoError(t, svc.RevokeToken(ctx, "jti-1", "u1", exp))
	revoked, err := svc.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestService_RunCleanup(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	blacklist := NewMockBlacklistRepository(ctrl)
	svc := NewService(repo, blacklist)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	repo.EXPECT().PurgeExpired(gomock.Any()).Return(int64(2), nil).MinTimes(1)
	blacklist.EXPECT().PurgeExpired(gomock.Any()).DoAndReturn(func(context.Context) (int64, error) {
		cancel()
		return 0, errors.New("db down")
	}).MinTimes(1)

	go func() {
		svc.RunCleanup(ctx, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not stop after cancel")
	}
}

func TestHTTPHandler_DeleteSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	h := NewHTTPHandler(NewService(repo, NewMockBlacklistRepository(ctrl)), slog.New(slog.NewTextHandler(io.Discard, nil)))

	repo.EXPECT().DeleteForUser(gomock.Any(), "u1", "s9").Return(ErrNotFound)

	r := httptest.NewRequest(http.MethodDelete, "/me/sessions/s9", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "s9")
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	r = r.WithContext(httpx.ContextWithUser(ctx, "u1", "USER"))

	w := httptest.NewRecorder()
	h.DeleteSession(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_ListSessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	h := NewHTTPHandler(NewService(repo, NewMockBlacklistRepository(ctrl)), slog.New(slog.NewTextHandler(io.Discard, nil)))

	repo.EXPECT().ListActive(gomock.Any(), "u1").Return([]Session{{ID: "s1", UserAgent: "curl/8"}}, nil)

	r := httptest.NewRequest(http.MethodGet, "/me/sessions", nil)
	r = r.WithContext(httpx.ContextWithUser(r.Context(), "u1", "USER"))
	w := httptest.NewRecorder()
	h.ListSessions(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "curl/8")
	assert.NotContains(t, w.Body.String(), "refresh_token_hash")

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ListSessions(w, httptest.NewRequest(http.MethodGet, "/me/sessions", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
