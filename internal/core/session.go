package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/models"
)

// ErrNoGameSelected is returned by Session.PayGame before a game was selected.
var ErrNoGameSelected = errors.New("no game selected")

// Session is the state held for one signed-in identity. It is never
// repurposed: a change of role produces a new Session.
type Session struct {
	identity identity.Identity
	role     models.Role // role the session was built for; empty without a user record
	ledger   EventLedger

	// Live views, only opened for members.
	pending  *View[*models.User]
	members  *View[*models.User]
	upcoming *View[*models.Game]
	past     *View[*models.Game]

	closers   []func()
	changes   broadcaster
	done      chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	user         *models.User
	selectedGame string
}

// newSession opens the feeds the user's role is entitled to. user may be nil
// when the identity has no user record.
func newSession(ctx context.Context, store db.Store, ledger EventLedger, id identity.Identity, user *models.User, logger *zap.Logger) (*Session, error) {
	s := &Session{
		identity: id,
		ledger:   ledger,
		user:     user,
		done:     make(chan struct{}),
	}
	if user == nil {
		return s, nil
	}
	s.role = user.Role
	if !user.IsMember() {
		return s, nil
	}

	subs := make([]*db.Subscription, 0, 4)
	for _, q := range []db.Query{PendingUsersQuery(), MembersQuery(), UpcomingGamesQuery(), PastGamesQuery()} {
		sub, err := store.Subscribe(ctx, q)
		if err != nil {
			for _, opened := range subs {
				opened.Close()
			}
			return nil, fmt.Errorf("failed to subscribe to %s where %s %s %v: %w", q.Collection, q.Field, q.Op, q.Value, err)
		}
		subs = append(subs, sub)
	}

	s.pending = newView(subs[0], projectUsers(logger), s.changes.notify)
	s.members = newView(subs[1], projectUsers(logger), s.changes.notify)
	s.upcoming = newView(subs[2], projectGames(logger), s.changes.notify)
	s.past = newView(subs[3], projectGames(logger), s.changes.notify)
	s.closers = []func(){s.pending.Close, s.members.Close, s.upcoming.Close, s.past.Close}
	return s, nil
}

// Identity returns the authenticated principal of the session.
func (s *Session) Identity() identity.Identity { return s.identity }

// User returns the latest known user record, or nil if there is none.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// setUser records a change to the user's own document that keeps the role.
func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.changes.notify()
}

// IsMember reports whether the session was opened for an accepted member.
func (s *Session) IsMember() bool {
	return s.role == models.RoleMember
}

// PendingUsers returns the approval queue. Empty for non-members.
func (s *Session) PendingUsers() []*models.User {
	if s.pending == nil {
		return []*models.User{}
	}
	return s.pending.Snapshot()
}

// Members returns the member directory. Empty for non-members.
func (s *Session) Members() []*models.User {
	if s.members == nil {
		return []*models.User{}
	}
	return s.members.Snapshot()
}

// UpcomingGames returns the unsettled games. Empty for non-members.
func (s *Session) UpcomingGames() []*models.Game {
	if s.upcoming == nil {
		return []*models.Game{}
	}
	return s.upcoming.Snapshot()
}

// PastGames returns the settled games. Empty for non-members.
func (s *Session) PastGames() []*models.Game {
	if s.past == nil {
		return []*models.Game{}
	}
	return s.past.Snapshot()
}

// SelectGame sets the game the next PayGame applies to. Nothing is stored.
func (s *Session) SelectGame(gameID string) {
	s.mu.Lock()
	s.selectedGame = gameID
	s.mu.Unlock()
}

// SelectedGame returns the currently selected game ID.
func (s *Session) SelectedGame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedGame
}

// PayGame settles the selected game.
func (s *Session) PayGame(ctx context.Context, amount float64, memberID string) error {
	gameID := s.SelectedGame()
	if gameID == "" {
		return ErrNoGameSelected
	}
	return s.ledger.PayGame(ctx, gameID, amount, memberID)
}

// Changes returns a channel that is closed on the next change to any of
// the session's views or to the user record. Once the session is closed the
// channel is already closed.
func (s *Session) Changes() <-chan struct{} {
	return s.changes.wait()
}

// Done is closed when the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close releases every subscription held by the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, closer := range s.closers {
			closer()
		}
		close(s.done)
		s.changes.shutdown()
	})
}
