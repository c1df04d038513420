package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/session"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	accessTokenTTL     = 15 * time.Minute
	refreshTokenTTL    = 30 * 24 * time.Hour
	rememberMeTokenTTL = 90 * 24 * time.Hour
)

// Tokens is the result of a login or refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type Service struct {
	secret   string
	users    UserLookup
	sessions SessionStore
}

func NewService(secret string, users UserLookup, sessions SessionStore) *Service {
	return &Service{
		secret:   secret,
		users:    users,
		sessions: sessions,
	}
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func refreshTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return rememberMeTokenTTL
	}
	return refreshTokenTTL
}

// issue signs an access token for userID and opens a new refresh session.
func (s *Service) issue(ctx context.Context, userID, role string, sess session.Session) (Tokens, error) {
	accessToken, _, err := crypto.GenerateToken(s.secret, userID, role, accessTokenTTL)
	if err != nil {
		return Tokens{}, err
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return Tokens{}, err
	}

	sess.ID = ""
	sess.UserID = userID
	sess.RefreshTokenHash = hashToken(refreshToken)
	sess.ExpiresAt = time.Now().Add(refreshTTL(sess.RememberMe))
	if err := s.sessions.Create(ctx, &sess); err != nil {
		if errors.Is(err, session.ErrUnknownUser) {
			return Tokens{}, ErrUnauthorized
		}
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool, userAgent, ipAddress string) (Tokens, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !crypto.VerifyPassword(u.PasswordHash, password) {
		return Tokens{}, ErrUnauthorized
	}

	return s.issue(ctx, u.ID, u.Role, session.Session{
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		RememberMe: rememberMe,
	})
}

// RefreshToken rotates a refresh token: the presented session is consumed
// and a new one with a fresh token replaces it.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (Tokens, error) {
	sess, err := s.sessions.Consume(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Tokens{}, ErrUnauthorized
		}
		return Tokens{}, err
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return Tokens{}, ErrUnauthorized
	}
	return s.issue(ctx, u.ID, u.Role, sess)
}

// Logout revokes the access token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string, userID string) error {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return ErrUnauthorized
	}

	expiresAt := time.Now().Add(accessTokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.sessions.RevokeToken(ctx, claims.ID, userID, expiresAt)
}
