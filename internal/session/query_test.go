package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeSQL(t *testing.T) {
	query, args, err := consumeSQL("abc")
	require.NoError(t, err)

	assert.Contains(t, query, `DELETE FROM "sessions"`)
	assert.Contains(t, query, `"expires_at" > now()`)
	assert.Contains(t, query, `RETURNING "id", "user_id", "refresh_token_hash"`)
	assert.NotContains(t, query, "abc", "token hash must be bound")
	assert.Equal(t, []any{"abc"}, args)
}

func TestDeleteForUserSQL_ScopesToOwner(t *testing.T) {
	query, args, err := deleteForUserSQL("u1", "s1")
	require.NoError(t, err)
	assert.Contains(t, query, `"user_id" = $`)
	assert.ElementsMatch(t, []any{"u1", "s1"}, args)
}

func TestRevokeSQL(t *testing.T) {
	query, args, err := revokeSQL("jti-1", "u1", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "token_blacklist"`)
	assert.Contains(t, query, "ON CONFLICT DO NOTHING")
	assert.Len(t, args, 3)
}

func TestPurgeSQL(t *testing.T) {
	query, args, err := purgeSQL(blacklist)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "token_blacklist" WHERE ("expires_at" <= now())`, query)
	assert.Empty(t, args)
}
