package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"pointer/internal/identity"
	"pointer/pkg/platform/sentinel"
)

// SessionStoreSuite runs the same contract against every SessionStore.
type SessionStoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) identity.SessionStore
	store    identity.SessionStore
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *SessionStoreSuite) TestLoadMissing() {
	sess, err := s.store.Load(context.Background(), "nobody")
	s.Nil(sess)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestSaveLoadDelete() {
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	want := &identity.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		ExpiresAt:    1_900_000_000,
		User:         &identity.User{ID: "u-1", Email: "a@example.com", CreatedAt: created},
	}

	s.Require().NoError(s.store.Save(ctx, "b-1", want))

	got, err := s.store.Load(ctx, "b-1")
	s.Require().NoError(err)
	s.Equal(want.AccessToken, got.AccessToken)
	s.Equal(want.RefreshToken, got.RefreshToken)
	s.Equal(want.ExpiresAt, got.ExpiresAt)
	s.Require().NotNil(got.User)
	s.Equal("u-1", got.User.ID)
	s.True(created.Equal(got.User.CreatedAt))

	_, err = s.store.Load(ctx, "b-2")
	s.ErrorIs(err, sentinel.ErrNotFound, "sessions are scoped per browser")

	s.Require().NoError(s.store.Delete(ctx, "b-1"))
	_, err = s.store.Load(ctx, "b-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestSaveReplaces() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "b-1", &identity.Session{AccessToken: "first"}))
	s.Require().NoError(s.store.Save(ctx, "b-1", &identity.Session{AccessToken: "second"}))

	got, err := s.store.Load(ctx, "b-1")
	s.Require().NoError(err)
	s.Equal("second", got.AccessToken)
}

func TestInMemorySessionStore(t *testing.T) {
	suite.Run(t, &SessionStoreSuite{newStore: func(*testing.T) identity.SessionStore {
		return NewInMemorySessionStore(time.Hour)
	}})
}

func TestInMemorySessionStoreExpires(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewInMemorySessionStore(time.Minute, WithClock(clock))

	require.NoError(t, store.Save(ctx, "b-1", &identity.Session{AccessToken: "x"}))
	clock.Advance(30 * time.Second)
	require.NoError(t, store.Save(ctx, "b-2", &identity.Session{AccessToken: "y"}))

	clock.Advance(45 * time.Second)
	_, err := store.Load(ctx, "b-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	got, err := store.Load(ctx, "b-2")
	require.NoError(t, err, "b-2 was saved later and is still live")
	assert.Equal(t, "y", got.AccessToken)

	// entries nobody reads again are swept by a later write
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Save(ctx, "b-3", &identity.Session{AccessToken: "z"}))
	assert.Equal(t, 1, store.Len())
}

func TestRedisSessionStore(t *testing.T) {
	suite.Run(t, &SessionStoreSuite{newStore: func(t *testing.T) identity.SessionStore {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisSessionStore(client, time.Hour)
	}})
}

func TestRedisSessionStoreAppliesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(client, time.Minute)

	require.NoError(t, store.Save(context.Background(), "b-1", &identity.Session{AccessToken: "x"}))
	assert.Equal(t, time.Minute, mr.TTL(sessionKeyPrefix+"b-1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(context.Background(), "b-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
