package session

import (
	"context"
	"log/slog"
	"time"
)

type Service struct {
	repo      Repository
	blacklist BlacklistRepository
}

func NewService(repo Repository, blacklist BlacklistRepository) *Service {
	return &Service{repo: repo, blacklist: blacklist}
}

// ListForUser returns userID's unexpired sessions, most recently used first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Session, error) {
	return s.repo.ListActive(ctx, userID)
}

// DeleteForUser revokes one of userID's sessions. A session owned by someone
// else is reported as ErrNotFound.
func (s *Service) DeleteForUser(ctx context.Context, userID, sessionID string) error {
	return s.repo.DeleteForUser(ctx, userID, sessionID)
}

func (s *Service) Create(ctx context.Context, session *Session) error {
	return s.repo.Create(ctx, session)
}

// Consume redeems a refresh token hash. Two concurrent redemptions of the same
// token cannot both succeed.
func (s *Service) Consume(ctx context.Context, tokenHash string) (Session, error) {
	return s.repo.Consume(ctx, tokenHash)
}

func (s *Service) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	return s.blacklist.Revoke(ctx, jti, userID, expiresAt)
}

// IsBlacklisted lets the service act as the auth middleware's revocation check.
func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.blacklist.IsRevoked(ctx, jti)
}

// RunCleanup purges expired sessions and blacklist entries every interval
// until ctx is cancelled.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge(ctx, logger)
		}
	}
}

func (s *Service) purge(ctx context.Context, logger *slog.Logger) {
	sessions, err := s.repo.PurgeExpired(ctx)
	if err != nil {
		logger.Warn("purge expired sessions", "error", err)
	}
	tokens, err := s.blacklist.PurgeExpired(ctx)
	if err != nil {
		logger.Warn("purge token blacklist", "error", err)
	}
	if sessions > 0 || tokens > 0 {
		logger.Info("expired credentials purged", "sessions", sessions, "revoked_tokens", tokens)
	}
}
