// Package session tracks authenticated sessions. Each session owns its
// user's cart exclusively; carts live only in process memory and die with
// the session.
package session

import (
	"context"
	"sync"
	"time"

	"library-service/internal/cart"
	"library-service/internal/models"

	"github.com/google/uuid"
)

// Session is the per-user context passed into every operation. No
// process-wide current-user state exists; handlers resolve a token to a
// Session and hand it down.
type Session struct {
	Token     string
	User      *models.User
	Cart      *cart.Cart
	CreatedAt time.Time
	expiresAt time.Time
}

// TokenStore mirrors session tokens into shared storage with a TTL so that
// expiry survives across instances. Implemented by redisclient.Client.
type TokenStore interface {
	PutSession(ctx context.Context, token string, userID int64, ttl time.Duration) error
	TouchSession(ctx context.Context, token string, ttl time.Duration) (bool, error)
	DeleteSession(ctx context.Context, token string) error
}

// Manager issues and resolves session tokens. The registry mutex protects
// the map only; a single session's cart is never shared across actors.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	tokens   TokenStore
	ttl      time.Duration
}

// NewManager creates a session manager. tokens may be nil, in which case
// expiry is tracked in memory only.
func NewManager(tokens TokenStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		tokens:   tokens,
		ttl:      ttl,
	}
}

// Create opens a session for an authenticated user and returns it with a
// fresh token and an empty cart.
func (m *Manager) Create(ctx context.Context, user *models.User) (*Session, error) {
	now := time.Now()
	sess := &Session{
		Token:     uuid.New().String(),
		User:      user,
		Cart:      cart.New(),
		CreatedAt: now,
		expiresAt: now.Add(m.ttl),
	}

	if m.tokens != nil {
		if err := m.tokens.PutSession(ctx, sess.Token, user.ID, m.ttl); err != nil {
			return nil, models.WrapPersistence("session.Create", err)
		}
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.mu.Unlock()
	return sess, nil
}

// Resolve returns the session for a token, refreshing its TTL. Unknown or
// expired tokens yield ErrUnauthenticated.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	now := time.Now()

	// Expiry is read and refreshed under the registry mutex: concurrent
	// requests carrying the same token race on expiresAt otherwise.
	m.mu.Lock()
	sess, ok := m.sessions[token]
	if ok && now.After(sess.expiresAt) {
		delete(m.sessions, token)
		ok = false
	}
	if ok {
		sess.expiresAt = now.Add(m.ttl)
	}
	m.mu.Unlock()

	if !ok {
		if m.tokens != nil {
			_ = m.tokens.DeleteSession(ctx, token)
		}
		return nil, models.ErrUnauthenticated
	}

	if m.tokens != nil {
		alive, err := m.tokens.TouchSession(ctx, token, m.ttl)
		if err != nil {
			return nil, models.WrapPersistence("session.Resolve", err)
		}
		if !alive {
			m.Destroy(ctx, token)
			return nil, models.ErrUnauthenticated
		}
	}
	return sess, nil
}

// Destroy ends a session. The cart dies with it.
func (m *Manager) Destroy(ctx context.Context, token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()

	if m.tokens != nil {
		_ = m.tokens.DeleteSession(ctx, token)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
