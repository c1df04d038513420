package session

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	// Consume removes a live session by refresh token hash and returns it.
	Consume(ctx context.Context, tokenHash string) (Session, error)
	ListActive(ctx context.Context, userID string) ([]Session, error)
	DeleteForUser(ctx context.Context, userID, sessionID string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type BlacklistRepository interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}
