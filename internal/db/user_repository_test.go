package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubledger-backend-go/internal/models"
)

func TestUserRepository(t *testing.T) {
	store := NewMemoryStore()
	repo := NewUserRepository(store)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, models.NewPendingUser("U1", "a@b.com")))

		user, err := repo.GetByID(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, &models.User{ID: "U1", Role: models.RolePending, Email: "a@b.com", Total: 0}, user)
	})

	t.Run("put overwrites role and total", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, &models.User{ID: "U2", Role: models.RoleMember, Email: "m@b.com", Total: 40}))
		require.NoError(t, repo.Put(ctx, models.NewPendingUser("U2", "m@b.com")))

		user, err := repo.GetByID(ctx, "U2")
		require.NoError(t, err)
		assert.Equal(t, models.RolePending, user.Role)
		assert.Zero(t, user.Total)
	})

	t.Run("create keeps an existing record", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, &models.User{ID: "U3", Role: models.RoleMember, Email: "c@b.com", Total: 7}))
		err := repo.Create(ctx, models.NewPendingUser("U3", "c@b.com"))
		assert.ErrorIs(t, err, ErrAlreadyExists)

		user, err := repo.GetByID(ctx, "U3")
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, user.Role)
		assert.Equal(t, 7.0, user.Total)
	})

	t.Run("update role touches only the role", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, &models.User{ID: "U4", Role: models.RolePending, Email: "d@b.com", Total: 3}))
		require.NoError(t, repo.UpdateRole(ctx, "U4", models.RoleMember))

		user, err := repo.GetByID(ctx, "U4")
		require.NoError(t, err)
		assert.Equal(t, &models.User{ID: "U4", Role: models.RoleMember, Email: "d@b.com", Total: 3}, user)
	})

	t.Run("invalid role is refused", func(t *testing.T) {
		assert.Error(t, repo.UpdateRole(ctx, "U4", models.Role("admin")))
	})

	t.Run("update role of missing user", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateRole(ctx, "ghost", models.RoleMember), ErrNotFound)
	})

	t.Run("increment total", func(t *testing.T) {
		require.NoError(t, repo.IncrementTotal(ctx, "U4", 10))
		require.NoError(t, repo.IncrementTotal(ctx, "U4", 2.5))

		user, err := repo.GetByID(ctx, "U4")
		require.NoError(t, err)
		assert.Equal(t, 15.5, user.Total)
	})

	t.Run("stored role outside the enum fails to decode", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, UsersCollection, "U5", map[string]interface{}{"role": "admin"}))
		_, err := repo.GetByID(ctx, "U5")
		assert.ErrorContains(t, err, "invalid role")
	})
}
