package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("email or username already registered")
	ErrInUse         = errors.New("user has borrow history")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
