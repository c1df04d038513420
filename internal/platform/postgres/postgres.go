// Package postgres holds pgx pool setup and error classification shared by the repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// Open creates a pool and pings it within pingTimeout.
func Open(ctx context.Context, dsn string, pingTimeout time.Duration) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// IsInvalidID reports a malformed uuid literal; callers treat it as not found.
func IsInvalidID(err error) bool {
	return pgCode(err) == codeInvalidText
}
