package session

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrUnknownUser = errors.New("session owner does not exist")
)

// Session is one refresh-token login. Only the SHA-256 of the token is stored.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	IPAddress        string
	RememberMe       bool
	ExpiresAt        time.Time
	CreatedAt        time.Time
	LastUsedAt       time.Time
}
