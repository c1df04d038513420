package user

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=user

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
}
