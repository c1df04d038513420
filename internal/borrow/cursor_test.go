package borrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	c := Cursor{BorrowDate: date(2026, 5, 4), ID: "7d0c9a4e-1111-4c5e-9d0a-3f1f2b7e0a11"}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, c.BorrowDate.Equal(decoded.BorrowDate))
	assert.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, s := range []string{"%%%", "bm90LWpzb24", "e30"} {
		_, err := DecodeCursor(s)
		assert.ErrorIs(t, err, ErrInvalidCursor, s)
	}
}
