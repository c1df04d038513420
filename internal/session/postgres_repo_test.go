package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/testutil"
)

func TestPostgresRepo_Lifecycle(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewPostgresRepo(db, 5*time.Second)
	ctx := context.Background()
	userID := testutil.InsertUser(t, db, "sessionuser", "USER")
	otherID := testutil.InsertUser(t, db, "otheruser", "USER")

	s1 := &Session{UserID: userID, RefreshTokenHash: "hash-1", UserAgent: "test-agent", IPAddress: "127.0.0.1", ExpiresAt: time.Now().Add(24 * time.Hour)}
	s2 := &Session{UserID: userID, RefreshTokenHash: "hash-2", ExpiresAt: time.Now().Add(24 * time.Hour)}
	expired := &Session{UserID: userID, RefreshTokenHash: "hash-old", ExpiresAt: time.Now().Add(-time.Hour)}
	for _, s := range []*Session{s1, s2, expired} {
		require.NoError(t, repo.Create(ctx, s))
		require.NotEmpty(t, s.ID)
		require.NotZero(t, s.CreatedAt)
	}

	err := repo.Create(ctx, &Session{UserID: "00000000-0000-0000-0000-000000000000", RefreshTokenHash: "orphan", ExpiresAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, ErrUnknownUser)

	sessions, err := repo.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	consumed, err := repo.Consume(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, s1.ID, consumed.ID)
	assert.Equal(t, "test-agent", consumed.UserAgent)
	_, err = repo.Consume(ctx, "hash-1")
	require.ErrorIs(t, err, ErrNotFound, "a refresh token is redeemable once")
	_, err = repo.Consume(ctx, "hash-old")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, repo.DeleteForUser(ctx, otherID, s2.ID), ErrNotFound)
	require.ErrorIs(t, repo.DeleteForUser(ctx, userID, "not-a-uuid"), ErrNotFound)
	require.NoError(t, repo.DeleteForUser(ctx, userID, s2.ID))

	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	sessions, err = repo.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestPostgresRepo_ConsumeIsSingleUse(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewPostgresRepo(db, 5*time.Second)
	ctx := context.Background()
	userID := testutil.InsertUser(t, db, "racer", "USER")
	require.NoError(t, repo.Create(ctx, &Session{UserID: userID, RefreshTokenHash: "shared", ExpiresAt: time.Now().Add(time.Hour)}))

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume(ctx, "shared"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestBlacklistPostgresRepo(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewBlacklistPostgresRepo(db, 5*time.Second)
	ctx := context.Background()
	userID := testutil.InsertUser(t, db, "blacklisted", "USER")

	require.NoError(t, repo.Revoke(ctx, "jti-live", userID, time.Now().Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, "jti-live", userID, time.Now().Add(time.Hour)), "duplicate revoke is a no-op")
	require.NoError(t, repo.Revoke(ctx, "jti-expired", userID, time.Now().Add(-time.Hour)))

	ok, err := repo.IsRevoked(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IsRevoked(ctx, "jti-expired")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.IsRevoked(ctx, "non-existent-jti")
	require.NoError(t, err)
	require.False(t, ok)

	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}
