// Package store keeps the terminal operator accounts. Everything else the
// terminal shows lives on the upstream Flowork server.
package store

import (
	"context"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("username already exists")
)

type Repository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
