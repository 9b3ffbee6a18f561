package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/models"
)

func newTestRegistry() (*db.MemoryStore, db.UserRepository, *mockProvider, MembershipRegistry) {
	store := db.NewMemoryStore()
	users := db.NewUserRepository(store)
	provider := new(mockProvider)
	return store, users, provider, NewMembershipRegistry(provider, users, zap.NewNop())
}

func TestMembershipRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("missing email or password is a no-op", func(t *testing.T) {
		store, _, provider, registry := newTestRegistry()

		for _, in := range [][2]string{{"", "x"}, {"a@b.com", ""}, {"", ""}} {
			id, err := registry.Register(ctx, in[0], in[1])
			assert.NoError(t, err)
			assert.Nil(t, id)
		}

		provider.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything, mock.Anything)
		_, err := store.Get(ctx, db.UsersCollection, "")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("creates a pending user", func(t *testing.T) {
		_, users, provider, registry := newTestRegistry()
		provider.On("CreateIdentity", mock.Anything, "a@b.com", "secret").
			Return(&identity.Identity{UID: "U1", Email: "a@b.com", IDToken: "tok"}, nil)

		id, err := registry.Register(ctx, "a@b.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "U1", id.UID)

		user, err := users.GetByID(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, &models.User{ID: "U1", Role: models.RolePending, Email: "a@b.com", Total: 0}, user)
		provider.AssertExpectations(t)
	})

	t.Run("identity without tokens is registered and logged", func(t *testing.T) {
		obsCore, logs := observer.New(zapcore.WarnLevel)
		users := db.NewUserRepository(db.NewMemoryStore())
		provider := new(mockProvider)
		registry := NewMembershipRegistry(provider, users, zap.New(obsCore))
		provider.On("CreateIdentity", mock.Anything, "a@b.com", "secret").
			Return(&identity.Identity{UID: "U1", Email: "a@b.com"}, nil)

		id, err := registry.Register(ctx, "a@b.com", "secret")
		require.NoError(t, err)
		assert.Empty(t, id.IDToken)

		user, err := users.GetByID(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, models.RolePending, user.Role)

		entries := logs.FilterField(zap.String("uid", "U1")).All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("identity failure writes nothing", func(t *testing.T) {
		_, users, provider, registry := newTestRegistry()
		provider.On("CreateIdentity", mock.Anything, "a@b.com", "secret").
			Return(nil, fmt.Errorf("create identity: %w: email already in use", identity.ErrAuth))

		id, err := registry.Register(ctx, "a@b.com", "secret")
		assert.ErrorIs(t, err, identity.ErrAuth)
		assert.Nil(t, id)

		_, err = users.GetByID(ctx, "U1")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("record write failure leaves the identity", func(t *testing.T) {
		_, users, provider, registry := newTestRegistry()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		provider.On("CreateIdentity", mock.Anything, "a@b.com", "secret").
			Return(&identity.Identity{UID: "U1", Email: "a@b.com"}, nil)

		id, err := registry.Register(cancelled, "a@b.com", "secret")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, id)
		provider.AssertExpectations(t)

		_, err = users.GetByID(ctx, "U1")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestMembershipRegistry_Login(t *testing.T) {
	ctx := context.Background()
	_, _, provider, registry := newTestRegistry()
	provider.On("Authenticate", mock.Anything, "a@b.com", "secret").Return(&identity.Identity{UID: "U1"}, nil)
	provider.On("Authenticate", mock.Anything, "a@b.com", "wrong").Return(nil, fmt.Errorf("verify password: %w", identity.ErrAuth))

	id, err := registry.Login(ctx, "a@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "U1", id.UID)

	_, err = registry.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, identity.ErrAuth)

	id, err = registry.Login(ctx, "", "secret")
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestMembershipRegistry_LoginWithProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("first login creates a pending user", func(t *testing.T) {
		_, users, provider, registry := newTestRegistry()
		provider.On("AuthenticateFederated", mock.Anything, "google.com", "gtok").
			Return(&identity.Identity{UID: "G1", Email: "g@b.com"}, nil)

		id, err := registry.LoginWithProvider(ctx, "google.com", "gtok")
		require.NoError(t, err)
		assert.Equal(t, "G1", id.UID)

		user, err := users.GetByID(ctx, "G1")
		require.NoError(t, err)
		assert.Equal(t, models.RolePending, user.Role)
		assert.Equal(t, "g@b.com", user.Email)
	})

	t.Run("existing member is not reset", func(t *testing.T) {
		_, users, provider, registry := newTestRegistry()
		require.NoError(t, users.Put(ctx, &models.User{ID: "G1", Role: models.RoleMember, Email: "g@b.com", Total: 120}))
		provider.On("AuthenticateFederated", mock.Anything, "google.com", "gtok").
			Return(&identity.Identity{UID: "G1", Email: "g@b.com"}, nil)

		_, err := registry.LoginWithProvider(ctx, "google.com", "gtok")
		require.NoError(t, err)

		user, err := users.GetByID(ctx, "G1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, user.Role)
		assert.Equal(t, 120.0, user.Total)
	})

	t.Run("provider failure", func(t *testing.T) {
		_, _, provider, registry := newTestRegistry()
		provider.On("AuthenticateFederated", mock.Anything, "google.com", "bad").
			Return(nil, fmt.Errorf("verify assertion: %w", identity.ErrAuth))

		_, err := registry.LoginWithProvider(ctx, "google.com", "bad")
		assert.ErrorIs(t, err, identity.ErrAuth)
	})
}

func TestMembershipRegistry_AcceptReject(t *testing.T) {
	ctx := context.Background()
	_, users, _, registry := newTestRegistry()

	for _, prior := range []models.Role{models.RolePending, models.RoleMember, models.RoleRejected} {
		t.Run("from "+string(prior), func(t *testing.T) {
			require.NoError(t, users.Put(ctx, &models.User{ID: "U1", Role: prior, Email: "a@b.com", Total: 5}))

			require.NoError(t, registry.Accept(ctx, "U1"))
			user, err := users.GetByID(ctx, "U1")
			require.NoError(t, err)
			assert.Equal(t, models.RoleMember, user.Role)

			require.NoError(t, registry.Reject(ctx, "U1"))
			user, err = users.GetByID(ctx, "U1")
			require.NoError(t, err)
			assert.Equal(t, models.RoleRejected, user.Role)
			assert.Equal(t, "a@b.com", user.Email)
			assert.Equal(t, 5.0, user.Total)
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		assert.ErrorIs(t, registry.Accept(ctx, "ghost"), ErrUserNotFound)
		assert.ErrorIs(t, registry.Reject(ctx, "ghost"), ErrUserNotFound)
	})

	t.Run("empty uid is a no-op", func(t *testing.T) {
		assert.NoError(t, registry.Accept(ctx, ""))
	})
}

func TestMembershipRegistry_RequireMember(t *testing.T) {
	ctx := context.Background()
	_, users, _, registry := newTestRegistry()
	require.NoError(t, users.Put(ctx, &models.User{ID: "M", Role: models.RoleMember}))
	require.NoError(t, users.Put(ctx, &models.User{ID: "P", Role: models.RolePending}))

	user, err := registry.RequireMember(ctx, "M")
	require.NoError(t, err)
	assert.Equal(t, "M", user.ID)

	_, err = registry.RequireMember(ctx, "P")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = registry.RequireMember(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, registry.ValidatePayer(nil), ErrPayerNotMember)
	assert.ErrorIs(t, registry.ValidatePayer(&models.User{ID: "P", Role: models.RolePending}), ErrPayerNotMember)
	assert.NoError(t, registry.ValidatePayer(&models.User{ID: "M", Role: models.RoleMember}))
}

func TestMembershipRegistry_Logout(t *testing.T) {
	_, _, provider, registry := newTestRegistry()
	provider.On("EndSession", mock.Anything, "U1").Return(nil)
	provider.On("EndSession", mock.Anything, "U2").Return(fmt.Errorf("revoke: %w", identity.ErrAuth))

	assert.NoError(t, registry.Logout(context.Background(), "U1"))
	assert.ErrorIs(t, registry.Logout(context.Background(), "U2"), identity.ErrAuth)
	provider.AssertExpectations(t)
}
