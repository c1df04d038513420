package user

import (
	"context"
	"errors"
	"strings"

	"libraryapi/internal/platform/crypto"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a member account. The password is hashed here and never stored in clear.
func (s *Service) Register(ctx context.Context, email, username, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return User{}, ErrAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	newUser := &User{
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Role:         RoleUser,
	}
	if err := s.repo.Create(ctx, newUser); err != nil {
		return User{}, err
	}
	return *newUser, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
