package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, *MockUserLookup, *MockSessionStore) {
	ctrl := gomock.NewController(t)
	users := NewMockUserLookup(ctrl)
	sessions := NewMockSessionStore(ctrl)
	return NewService(testSecret, users, sessions), users, sessions
}

func member(t *testing.T, password string) user.User {
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)
	return user.User{ID: "u1", Email: "ada@example.com", PasswordHash: hash, Role: user.RoleUser}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues tokens and stores hashed refresh token", func(t *testing.T) {
		svc, users, sessions := newTestService(t)
		users.EXPECT().GetByEmail(ctx, "ada@example.com").Return(member(t, "Str0ng!Pass"), nil)

		var stored session.Session
		sessions.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *session.Session) error {
			stored = *s
			return nil
		})

		tokens, err := svc.Login(ctx, "ada@example.com", "Str0ng!Pass", true, "curl/8", "10.0.0.1")
		require.NoError(t, err)

		claims, err := crypto.ParseToken(testSecret, tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Sub)
		assert.NotEmpty(t, claims.ID)
		assert.Equal(t, 900, tokens.ExpiresIn)

		assert.Equal(t, hashToken(tokens.RefreshToken), stored.RefreshTokenHash)
		assert.NotEqual(t, tokens.RefreshToken, stored.RefreshTokenHash)
		assert.True(t, stored.RememberMe)
		assert.WithinDuration(t, time.Now().Add(rememberMeTokenTTL), stored.ExpiresAt, time.Minute)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.EXPECT().GetByEmail(ctx, "ada@example.com").Return(member(t, "Str0ng!Pass"), nil)

		_, err := svc.Login(ctx, "ada@example.com", "nope", false, "", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.EXPECT().GetByEmail(ctx, "x@example.com").Return(user.User{}, user.ErrNotFound)

		_, err := svc.Login(ctx, "x@example.com", "whatever", false, "", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestService_RefreshToken_Rotates(t *testing.T) {
	ctx := context.Background()
	svc, users, sessions := newTestService(t)
	old := session.Session{ID: "s1", UserID: "u1", RefreshTokenHash: hashToken("old"), UserAgent: "curl/8"}

	sessions.EXPECT().Consume(ctx, hashToken("old")).Return(old, nil)
	users.EXPECT().GetByID(ctx, "u1").Return(user.User{ID: "u1", Role: user.RoleUser}, nil)
	sessions.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *session.Session) error {
		assert.Empty(t, s.ID)
		assert.Equal(t, "curl/8", s.UserAgent)
		assert.NotEqual(t, hashToken("old"), s.RefreshTokenHash)
		return nil
	})

	tokens, err := svc.RefreshToken(ctx, "old")
	require.NoError(t, err)
	assert.NotEqual(t, "old", tokens.RefreshToken)
}

func TestService_RefreshToken_Unknown(t *testing.T) {
	svc, _, sessions := newTestService(t)
	sessions.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(session.Session{}, session.ErrNotFound)

	_, err := svc.RefreshToken(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_RefreshToken_StoreError(t *testing.T) {
	svc, _, sessions := newTestService(t)
	storeErr := errors.New("connection reset")
	sessions.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(session.Session{}, storeErr)

	_, err := svc.RefreshToken(context.Background(), "any")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestService_RefreshToken_OwnerDeleted(t *testing.T) {
	ctx := context.Background()
	svc, users, sessions := newTestService(t)
	sessions.EXPECT().Consume(ctx, hashToken("old")).Return(session.Session{ID: "s1", UserID: "u1"}, nil)
	users.EXPECT().GetByID(ctx, "u1").Return(user.User{ID: "u1", Role: user.RoleUser}, nil)
	sessions.EXPECT().Create(ctx, gomock.Any()).Return(session.ErrUnknownUser)

	_, err := svc.RefreshToken(ctx, "old")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_Logout(t *testing.T) {
	svc, _, sessions := newTestService(t)
	token, jti, err := crypto.GenerateToken(testSecret, "u1", user.RoleUser, time.Hour)
	require.NoError(t, err)

	sessions.EXPECT().RevokeToken(gomock.Any(), jti, "u1", gomock.Any()).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), token, "u1"))
	assert.ErrorIs(t, svc.Logout(context.Background(), "garbage", "u1"), ErrUnauthorized)
}

func TestHTTPHandler_Login(t *testing.T) {
	svc, users, _ := newTestService(t)
	h := NewHTTPHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"email":"bad"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		users.EXPECT().GetByEmail(gomock.Any(), "ada@example.com").Return(user.User{}, user.ErrNotFound)

		body := `{"email":"Ada@example.com","password":"x"}`
		w := httptest.NewRecorder()
		h.Login(w, httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHTTPHandler_Logout_RequiresBearer(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHTTPHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r = r.WithContext(httpx.ContextWithUser(r.Context(), "u1", user.RoleUser))
	w := httptest.NewRecorder()
	h.Logout(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
