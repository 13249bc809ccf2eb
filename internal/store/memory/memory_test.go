package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/store"
)

func TestNewSeededHashesEnvPassword(t *testing.T) {
	t.Setenv(seedPasswordEnv, "s3cret-pass")
	s, err := NewSeeded(context.Background(), nil, " Admin ", "")
	require.NoError(t, err)

	user, err := s.GetUser(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret-pass")))
}

func TestNewSeededKeepsConfiguredHash(t *testing.T) {
	s, err := NewSeeded(context.Background(), nil, "boss", "$2a$10$abcdefghijklmnopqrstuv")
	require.NoError(t, err)
	user, err := s.GetUser(context.Background(), "BOSS")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", user.Password)
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: "Kim", Password: "hash-1"}))
	require.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "kim", Password: "hash-2"}), store.ErrUserExists)
	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: "an", Password: "hash-3", Role: domain.RoleAdmin}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "an", users[0].Username)
	assert.Equal(t, domain.RoleStaff, users[1].Role)

	require.NoError(t, s.UpdateUserPassword(ctx, "KIM", "hash-9"))
	user, err := s.GetUser(ctx, "kim")
	require.NoError(t, err)
	assert.Equal(t, "hash-9", user.Password)

	require.ErrorIs(t, s.UpdateUserPassword(ctx, "nobody", "x"), store.ErrNotFound)
	_, err = s.GetUser(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}
