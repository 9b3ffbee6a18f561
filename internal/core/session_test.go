package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type sessionFixture struct {
	store    *db.MemoryStore
	users    db.UserRepository
	provider *mockProvider
	registry MembershipRegistry
	ledger   EventLedger
	manager  *SessionManager
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	store := db.NewMemoryStore()
	users := db.NewUserRepository(store)
	provider := new(mockProvider)
	logger := zap.NewNop()
	registry := NewMembershipRegistry(provider, users, logger)
	ledger := NewEventLedger(db.NewGameRepository(store), registry, time.UTC, logger)
	manager := NewSessionManager(store, registry, ledger, logger)
	t.Cleanup(manager.CloseAll)
	return &sessionFixture{store: store, users: users, provider: provider, registry: registry, ledger: ledger, manager: manager}
}

func gameIDs(games []*models.Game) []string {
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	return ids
}

func userIDs(users []*models.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestSession_NonMemberSeesNothing(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, models.NewPendingUser("P1", "p@club")))
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))
	_, err := f.ledger.CreateGame(ctx, "2020-01-01", "00:00", "Hall")
	require.NoError(t, err)

	session, err := f.manager.Open(ctx, identity.Identity{UID: "P1"})
	require.NoError(t, err)

	assert.False(t, session.IsMember())
	assert.Equal(t, models.RolePending, session.User().Role)
	assert.Empty(t, session.PendingUsers())
	assert.Empty(t, session.Members())
	assert.Empty(t, session.UpcomingGames())
	assert.Empty(t, session.PastGames())
}

func TestSession_IdentityWithoutRecord(t *testing.T) {
	f := newSessionFixture(t)

	session, err := f.manager.Open(context.Background(), identity.Identity{UID: "orphan"})
	require.NoError(t, err)
	assert.Nil(t, session.User())
	assert.False(t, session.IsMember())
}

func TestSession_MemberViewsFollowTheStore(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember, Email: "m@club"}))
	require.NoError(t, f.users.Put(ctx, models.NewPendingUser("P1", "p@club")))

	session, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)
	require.True(t, session.IsMember())

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"P1"}, userIDs(session.PendingUsers())) &&
			assert.ObjectsAreEqual([]string{"M1"}, userIDs(session.Members()))
	}, waitFor, tick)

	changed := session.Changes()
	require.NoError(t, f.registry.Accept(ctx, "P1"))
	select {
	case <-changed:
	case <-time.After(waitFor):
		t.Fatal("no change notification after accept")
	}
	assert.Eventually(t, func() bool {
		return len(session.PendingUsers()) == 0 &&
			assert.ObjectsAreEqual([]string{"M1", "P1"}, userIDs(session.Members()))
	}, waitFor, tick)
}

func TestSession_SelectAndPay(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))
	session, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)

	assert.ErrorIs(t, session.PayGame(ctx, 10, "M1"), ErrNoGameSelected)

	id, err := f.ledger.CreateGame(ctx, "2020-01-01", "00:00", "Hall")
	require.NoError(t, err)
	session.SelectGame(id)
	assert.Equal(t, id, session.SelectedGame())

	// Selecting is local state only.
	game, err := db.NewGameRepository(f.store).GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, game.Settled())

	require.NoError(t, session.PayGame(ctx, 10, "M1"))
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{id}, gameIDs(session.PastGames())) && len(session.UpcomingGames()) == 0
	}, waitFor, tick)
}

func TestSessionManager_RebuildsOnRoleChange(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, models.NewPendingUser("P1", "p@club")))

	first, err := f.manager.Open(ctx, identity.Identity{UID: "P1"})
	require.NoError(t, err)
	require.False(t, first.IsMember())

	require.NoError(t, f.registry.Accept(ctx, "P1"))

	assert.Eventually(t, func() bool {
		s, ok := f.manager.Get("P1")
		return ok && s.IsMember()
	}, waitFor, tick)
	assert.Eventually(t, func() bool { return isClosed(first.Done()) }, waitFor, tick)

	current, _ := f.manager.Get("P1")
	assert.NotSame(t, first, current)
	assert.Equal(t, models.RoleMember, current.User().Role)

	// Rejection after acceptance tears the feeds down again.
	require.NoError(t, f.registry.Reject(ctx, "P1"))
	assert.Eventually(t, func() bool {
		s, ok := f.manager.Get("P1")
		return ok && !s.IsMember() && s.User().Role == models.RoleRejected
	}, waitFor, tick)
	assert.Eventually(t, func() bool { return isClosed(current.Done()) }, waitFor, tick)
}

func TestSessionManager_TotalUpdatesKeepTheSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))

	session, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)
	session.SelectGame("G1")

	require.NoError(t, f.users.IncrementTotal(ctx, "M1", 15))
	assert.Eventually(t, func() bool { return session.User().Total == 15 }, waitFor, tick)

	current, ok := f.manager.Get("M1")
	require.True(t, ok)
	assert.Same(t, session, current)
	assert.Equal(t, "G1", current.SelectedGame())
}

func TestSessionManager_OpenReplacesPreviousSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))

	first, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)
	second, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)

	assert.True(t, isClosed(first.Done()))
	assert.False(t, isClosed(second.Done()))

	ensured, err := f.manager.Ensure(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)
	assert.Same(t, second, ensured)
}

func TestSessionManager_Logout(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))
	f.provider.On("EndSession", mock.Anything, "M1").Return(nil)

	session, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)

	require.NoError(t, f.manager.Logout(ctx, "M1"))
	assert.True(t, isClosed(session.Done()))
	_, ok := f.manager.Get("M1")
	assert.False(t, ok)

	// Writes after logout reach no one.
	_, err = f.ledger.CreateGame(ctx, "2020-01-01", "00:00", "Hall")
	require.NoError(t, err)
	assert.Empty(t, session.UpcomingGames())
	f.provider.AssertExpectations(t)
}

func TestSession_ChangesAfterClose(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))
	f.provider.On("EndSession", mock.Anything, "M1").Return(nil)

	session, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)
	require.NoError(t, f.manager.Logout(ctx, "M1"))

	// A listener that subscribes only after logout still wakes up.
	select {
	case <-session.Changes():
	case <-time.After(time.Second):
		t.Fatal("Changes on a closed session did not fire")
	}
}

func TestSessionManager_CloseAll(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "M1", Role: models.RoleMember}))

	session, err := f.manager.Open(ctx, identity.Identity{UID: "M1"})
	require.NoError(t, err)

	f.manager.CloseAll()
	assert.True(t, isClosed(session.Done()))

	_, err = f.manager.Open(ctx, identity.Identity{UID: "M1"})
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestEndToEnd_RegisterAcceptCreatePay(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Put(ctx, &models.User{ID: "ADMIN", Role: models.RoleMember, Email: "admin@club"}))
	f.provider.On("CreateIdentity", mock.Anything, "new@club", "secret").
		Return(&identity.Identity{UID: "U1", Email: "new@club"}, nil)

	admin, err := f.manager.Open(ctx, identity.Identity{UID: "ADMIN"})
	require.NoError(t, err)

	id, err := f.registry.Register(ctx, "new@club", "secret")
	require.NoError(t, err)
	newcomer, err := f.manager.Open(ctx, *id)
	require.NoError(t, err)
	assert.False(t, newcomer.IsMember())

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"U1"}, userIDs(admin.PendingUsers()))
	}, waitFor, tick)

	require.NoError(t, f.registry.Accept(ctx, "U1"))
	assert.Eventually(t, func() bool {
		s, ok := f.manager.Get("U1")
		return ok && s.IsMember()
	}, waitFor, tick)
	member, _ := f.manager.Get("U1")

	gameID, err := f.ledger.CreateGame(ctx, "2020-01-01", "00:00", "Hall")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{gameID}, gameIDs(member.UpcomingGames())) && len(member.PastGames()) == 0
	}, waitFor, tick)

	member.SelectGame(gameID)
	require.NoError(t, member.PayGame(ctx, 50, "U1"))

	assert.Eventually(t, func() bool {
		return len(member.UpcomingGames()) == 0 &&
			assert.ObjectsAreEqual([]string{gameID}, gameIDs(member.PastGames())) &&
			member.User().Total == 50
	}, waitFor, tick)

	past := admin.PastGames()
	require.Len(t, past, 1)
	assert.Equal(t, models.PaymentSettled{Member: "U1", Amount: 50}, past[0].Payment)
}
