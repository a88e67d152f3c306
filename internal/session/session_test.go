package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"library-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndResolve(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ctx := context.Background()

	user := &models.User{ID: 7, Email: "reader@library.example", Role: models.RoleUser}
	sess, err := m.Create(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.True(t, sess.Cart.IsEmpty())

	resolved, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Same(t, sess, resolved)
	assert.Equal(t, 1, m.Count())
}

func TestResolveUnknownToken(t *testing.T) {
	m := NewManager(nil, time.Minute)

	_, err := m.Resolve(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestResolveExpiredSession(t *testing.T) {
	m := NewManager(nil, time.Nanosecond)
	ctx := context.Background()

	sess, err := m.Create(ctx, &models.User{ID: 1})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, 0, m.Count())
}

func TestDestroy(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ctx := context.Background()

	sess, err := m.Create(ctx, &models.User{ID: 1})
	require.NoError(t, err)

	m.Destroy(ctx, sess.Token)
	_, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestConcurrentResolveSameToken(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ctx := context.Background()

	sess, err := m.Create(ctx, &models.User{ID: 1})
	require.NoError(t, err)

	// Two request handlers carrying the same token must be able to resolve
	// it simultaneously; run with -race.
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				resolved, err := m.Resolve(ctx, sess.Token)
				assert.NoError(t, err)
				assert.Same(t, sess, resolved)
			}
		}()
	}
	wg.Wait()
}

func TestSessionsAreIsolated(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ctx := context.Background()

	a, err := m.Create(ctx, &models.User{ID: 1})
	require.NoError(t, err)
	b, err := m.Create(ctx, &models.User{ID: 2})
	require.NoError(t, err)

	pub := &models.Publication{ID: 1, Title: "A", Price: 100, StockQuantity: 5}
	require.NoError(t, a.Cart.Add(pub, 2))

	assert.Equal(t, 1, a.Cart.Len())
	assert.True(t, b.Cart.IsEmpty())
}
