package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "borrow_records_open_book_idx"})
	fk := &pgconn.PgError{Code: "23503"}
	invalid := &pgconn.PgError{Code: "22P02"}
	plain := errors.New("boom")

	assert.True(t, IsUniqueViolation(unique))
	assert.Equal(t, "borrow_records_open_book_idx", ConstraintName(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsInvalidID(invalid))

	assert.False(t, IsUniqueViolation(plain))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.Empty(t, ConstraintName(plain))
}
