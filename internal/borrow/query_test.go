package borrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListSQL(t *testing.T) {
	t.Run("overdue for one user after a cursor", func(t *testing.T) {
		sql, args, err := buildListSQL(Query{
			UserID: "u1",
			Status: StatusOverdue,
			After:  &Cursor{BorrowDate: date(2026, 1, 2), ID: "r9"},
			Limit:  21,
			Today:  date(2026, 2, 1),
		})
		require.NoError(t, err)

		assert.Contains(t, sql, `FROM "borrow_records"`)
		assert.Contains(t, sql, `"returned" IS FALSE`)
		assert.Contains(t, sql, `"due_date" <`)
		assert.Contains(t, sql, "(borrow_date, id) <")
		assert.Contains(t, sql, `ORDER BY "borrow_date" DESC, "id" DESC`)
		assert.Contains(t, sql, "LIMIT")
		assert.Contains(t, args, "u1")
		assert.Contains(t, args, "r9")
	})

	t.Run("returned only", func(t *testing.T) {
		sql, _, err := buildListSQL(Query{Status: StatusReturned, Limit: 10})
		require.NoError(t, err)
		assert.Contains(t, sql, `"returned" IS TRUE`)
		assert.NotContains(t, sql, "due_date\" <")
	})

	t.Run("no filters", func(t *testing.T) {
		sql, args, err := buildListSQL(Query{Limit: 5})
		require.NoError(t, err)
		assert.NotContains(t, sql, "WHERE")
		assert.Len(t, args, 1)
	})
}
