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

// ErrManagerClosed is returned by Open after CloseAll.
var ErrManagerClosed = errors.New("session manager closed")

// trackedSession follows one identity's own user document and swaps in a
// new Session whenever the role changes.
type trackedSession struct {
	watch *db.Subscription
	done  chan struct{}

	mu      sync.Mutex
	current *Session
}

func (t *trackedSession) session() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *trackedSession) close() {
	t.watch.Close()
	<-t.done
	t.session().Close()
}

// SessionManager keeps one Session per signed-in identity. Feeds are tied to
// the manager's lifetime, not to the request that opened them.
type SessionManager struct {
	store    db.Store
	registry MembershipRegistry
	ledger   EventLedger
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	openMu   sync.Mutex // serializes Open and Ensure
	mu       sync.Mutex
	sessions map[string]*trackedSession
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(store db.Store, registry MembershipRegistry, ledger EventLedger, logger *zap.Logger) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		store:    store,
		registry: registry,
		ledger:   ledger,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*trackedSession),
	}
}

// Open starts a fresh session for id, replacing and closing any previous one.
func (m *SessionManager) Open(ctx context.Context, id identity.Identity) (*Session, error) {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	return m.open(ctx, id)
}

// Ensure returns the identity's current session, opening one if needed.
func (m *SessionManager) Ensure(ctx context.Context, id identity.Identity) (*Session, error) {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	if s, ok := m.Get(id.UID); ok {
		return s, nil
	}
	return m.open(ctx, id)
}

func (m *SessionManager) open(ctx context.Context, id identity.Identity) (*Session, error) {
	if m.ctx.Err() != nil {
		return nil, ErrManagerClosed
	}

	user, err := m.registry.Lookup(ctx, id.UID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		// An identity without a user record gets an empty session.
		m.logger.Warn("Opening session for identity without user record", zap.String("uid", id.UID))
		user = nil
	}
	if id.Email == "" && user != nil {
		id.Email = user.Email
	}

	session, err := newSession(m.ctx, m.store, m.ledger, id, user, m.logger)
	if err != nil {
		m.logger.Error("Failed to open session", zap.String("uid", id.UID), zap.Error(err))
		return nil, err
	}
	watch, err := m.store.SubscribeDoc(m.ctx, db.UsersCollection, id.UID)
	if err != nil {
		session.Close()
		m.logger.Error("Failed to watch user record", zap.String("uid", id.UID), zap.Error(err))
		return nil, fmt.Errorf("failed to watch user '%s': %w", id.UID, err)
	}

	tracked := &trackedSession{watch: watch, done: make(chan struct{}), current: session}
	go m.follow(tracked)

	m.mu.Lock()
	previous := m.sessions[id.UID]
	m.sessions[id.UID] = tracked
	m.mu.Unlock()
	if previous != nil {
		previous.close()
	}

	m.logger.Info("Session opened", zap.String("uid", id.UID), zap.Bool("member", session.IsMember()))
	return session, nil
}

func (m *SessionManager) follow(t *trackedSession) {
	defer close(t.done)
	for docs := range t.watch.Updates() {
		var user *models.User
		if len(docs) > 0 {
			decoded, err := models.DecodeUser(docs[0].ID, docs[0].Data)
			if err != nil {
				m.logger.Warn("Ignoring malformed user record", zap.String("id", docs[0].ID), zap.Error(err))
				continue
			}
			user = decoded
		}
		m.apply(t, user)
	}
	if err := t.watch.Err(); err != nil {
		m.logger.Error("User record feed ended", zap.Error(err))
	}
}

func (m *SessionManager) apply(t *trackedSession, user *models.User) {
	var role models.Role
	if user != nil {
		role = user.Role
	}

	t.mu.Lock()
	current := t.current
	if role == current.role {
		t.mu.Unlock()
		current.setUser(user)
		return
	}
	next, err := newSession(m.ctx, m.store, m.ledger, current.identity, user, m.logger)
	if err != nil {
		t.mu.Unlock()
		m.logger.Error("Failed to rebuild session after role change", zap.String("uid", current.identity.UID), zap.Error(err))
		return
	}
	t.current = next
	t.mu.Unlock()

	m.logger.Info("Session rebuilt after role change",
		zap.String("uid", current.identity.UID),
		zap.String("from", string(current.role)),
		zap.String("to", string(role)))
	current.Close()
}

// Get returns the current session of uid.
func (m *SessionManager) Get(uid string) (*Session, bool) {
	m.mu.Lock()
	tracked, ok := m.sessions[uid]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return tracked.session(), true
}

// Logout ends the identity's provider session and closes every feed held
// for it. The local session is closed even if the provider call fails.
func (m *SessionManager) Logout(ctx context.Context, uid string) error {
	err := m.registry.Logout(ctx, uid)

	m.mu.Lock()
	tracked := m.sessions[uid]
	delete(m.sessions, uid)
	m.mu.Unlock()
	if tracked != nil {
		tracked.close()
		m.logger.Info("Session closed", zap.String("uid", uid))
	}
	return err
}

// CloseAll closes every session. Open fails afterwards.
func (m *SessionManager) CloseAll() {
	m.cancel()

	m.mu.Lock()
	all := make([]*trackedSession, 0, len(m.sessions))
	for uid, tracked := range m.sessions {
		all = append(all, tracked)
		delete(m.sessions, uid)
	}
	m.mu.Unlock()

	for _, tracked := range all {
		tracked.close()
	}
}
