package auth

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=auth

import (
	"context"
	"time"

	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *session.Session) error
	Consume(ctx context.Context, tokenHash string) (session.Session, error)
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
}
