package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pointer/internal/identity"
	"pointer/internal/identity/mocks"
	"pointer/internal/platform/metrics"
)

type fakeSubscription struct {
	calls atomic.Int32
}

func (f *fakeSubscription) Unsubscribe() { f.calls.Add(1) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedIn(id string) *identity.Session {
	return &identity.Session{AccessToken: "tok-" + id, User: &identity.User{ID: id}}
}

type StoreSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	provider *mocks.MockProvider
	metrics  *metrics.Metrics
	store    *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.provider = mocks.NewMockProvider(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store = NewStore(s.provider, WithLogger(quietLogger()), WithMetrics(s.metrics))
}

func (s *StoreSuite) TestInitialState() {
	st := s.store.State()
	s.True(st.Loading)
	s.Nil(st.Session)
	s.Nil(st.User)
}

func (s *StoreSuite) TestRefreshReturnsProviderSession() {
	sess := signedIn("u-1")
	s.provider.EXPECT().GetSession(gomock.Any()).Return(sess, nil)

	got := s.store.Refresh(context.Background())
	s.Same(sess, got)
	st := s.store.State()
	s.Same(sess, st.Session)
	s.Equal("u-1", st.User.ID)
	s.True(st.Loading, "a plain refresh does not resolve the store")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionRefreshes.WithLabelValues("session")))
}

func (s *StoreSuite) TestRefreshFailureClearsSession() {
	s.provider.EXPECT().GetSession(gomock.Any()).Return(signedIn("u-1"), nil)
	s.store.Refresh(context.Background())

	s.provider.EXPECT().GetSession(gomock.Any()).Return(nil, errors.New("network down"))
	got := s.store.Refresh(context.Background())

	s.Nil(got)
	s.Nil(s.store.State().Session)
	s.Nil(s.store.State().User)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionRefreshes.WithLabelValues("error")))
}

func (s *StoreSuite) TestRefreshNilSession() {
	s.provider.EXPECT().GetSession(gomock.Any()).Return(nil, nil)
	s.Nil(s.store.Refresh(context.Background()))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionRefreshes.WithLabelValues("empty")))
}

func (s *StoreSuite) TestApplyOverwritesAndResolves() {
	s.store.Apply(identity.AuthEvent{Type: identity.EventSignedIn, Session: signedIn("u-1")})
	st := s.store.State()
	s.False(st.Loading)
	s.Equal("u-1", st.User.ID)

	s.store.Apply(identity.AuthEvent{Type: identity.EventSignedOut})
	st = s.store.State()
	s.Nil(st.Session)
	s.Nil(st.User)
	s.False(st.Loading)
}

func (s *StoreSuite) TestSessionWithoutUserStillHasUser() {
	s.store.Apply(identity.AuthEvent{Type: identity.EventSignedIn, Session: &identity.Session{AccessToken: "x"}})
	s.NotNil(s.store.State().User)
}

func (s *StoreSuite) TestWatchSeesEveryTransition() {
	var seen []State
	cancel := s.store.Watch(func(st State) { seen = append(seen, st) })

	s.provider.EXPECT().GetSession(gomock.Any()).Return(nil, nil)
	s.store.Refresh(context.Background())
	s.store.Apply(identity.AuthEvent{Type: identity.EventSignedIn, Session: signedIn("u-1")})
	cancel()
	s.store.Apply(identity.AuthEvent{Type: identity.EventSignedOut})

	s.Require().Len(seen, 2)
	s.True(seen[0].Loading)
	s.False(seen[1].Loading)
	s.Equal("u-1", seen[1].User.ID)
}

// For any event sequence the user is present iff the last event carried a session.
func TestStore_UserTracksLatestEvent(t *testing.T) {
	sequences := [][]identity.AuthEvent{
		{{Type: identity.EventSignedIn, Session: signedIn("a")}},
		{{Type: identity.EventSignedIn, Session: signedIn("a")}, {Type: identity.EventSignedOut}},
		{{Type: identity.EventSignedOut}, {Type: identity.EventSignedIn, Session: signedIn("b")}},
		{
			{Type: identity.EventInitialSession},
			{Type: identity.EventSignedIn, Session: signedIn("a")},
			{Type: identity.EventTokenRefreshed, Session: signedIn("a")},
			{Type: identity.EventUserUpdated, Session: signedIn("c")},
		},
		{
			{Type: identity.EventSignedIn, Session: signedIn("a")},
			{Type: identity.EventTokenRefreshed, Session: signedIn("a")},
			{Type: identity.EventSignedOut},
		},
	}

	for i, seq := range sequences {
		store := NewStore(nil, WithLogger(quietLogger()))
		for _, ev := range seq {
			store.Apply(ev)
		}
		last := seq[len(seq)-1]
		st := store.State()
		assert.Equal(t, last.Session != nil, st.User != nil, "sequence %d", i)
		assert.Equal(t, last.Session != nil, st.Session != nil, "sequence %d", i)
		if last.Session != nil {
			assert.Equal(t, last.Session.User.ID, st.User.ID, "sequence %d", i)
		}
		assert.False(t, st.Loading)
	}
}

type ProviderSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	identity *mocks.MockProvider
	sub      *fakeSubscription
	handler  identity.AuthStateHandler
	provider *Provider
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.identity = mocks.NewMockProvider(s.ctrl)
	s.sub = &fakeSubscription{}
	s.handler = nil
	s.provider = NewProvider(s.identity, WithLogger(quietLogger()))
}

func (s *ProviderSuite) expectSubscribe() *gomock.Call {
	return s.identity.EXPECT().OnAuthStateChange(gomock.Any()).DoAndReturn(
		func(h identity.AuthStateHandler) identity.Subscription {
			s.handler = h
			return s.sub
		})
}

func (s *ProviderSuite) TestMountSubscribesThenRefreshes() {
	sess := signedIn("u-1")
	gomock.InOrder(
		s.expectSubscribe(),
		s.identity.EXPECT().GetSession(gomock.Any()).Return(sess, nil),
	)

	s.True(s.provider.State().Loading)
	s.Require().NoError(s.provider.Mount(context.Background()))

	st := s.provider.State()
	s.False(st.Loading)
	s.Equal("u-1", st.User.ID)
	s.True(s.provider.Mounted())
	select {
	case <-s.provider.Resolved():
	default:
		s.Fail("provider should be resolved after mount")
	}
}

func (s *ProviderSuite) TestMountResolvesEvenWhenRefreshFails() {
	s.expectSubscribe()
	s.identity.EXPECT().GetSession(gomock.Any()).Return(nil, errors.New("boom"))

	s.Require().NoError(s.provider.Mount(context.Background()))
	st := s.provider.State()
	s.False(st.Loading)
	s.Nil(st.User)
}

func (s *ProviderSuite) TestSecondMountIsRejected() {
	s.expectSubscribe().Times(1)
	s.identity.EXPECT().GetSession(gomock.Any()).Return(nil, nil).Times(1)

	s.Require().NoError(s.provider.Mount(context.Background()))
	s.ErrorIs(s.provider.Mount(context.Background()), ErrAlreadyMounted)
}

func (s *ProviderSuite) TestEventsUpdateState() {
	s.expectSubscribe()
	s.identity.EXPECT().GetSession(gomock.Any()).Return(nil, nil)
	s.Require().NoError(s.provider.Mount(context.Background()))

	s.handler(identity.AuthEvent{Type: identity.EventSignedIn, Session: signedIn("u-2")})
	s.Equal("u-2", s.provider.State().User.ID)

	s.handler(identity.AuthEvent{Type: identity.EventSignedOut})
	s.Nil(s.provider.State().User)
}

func (s *ProviderSuite) TestUnmountUnsubscribesAndIgnoresLateEvents() {
	s.expectSubscribe()
	s.identity.EXPECT().GetSession(gomock.Any()).Return(signedIn("u-1"), nil)
	s.Require().NoError(s.provider.Mount(context.Background()))

	s.provider.Unmount()
	s.provider.Unmount()
	s.Equal(int32(1), s.sub.calls.Load(), "exactly one unsubscribe")
	s.False(s.provider.Mounted())

	s.handler(identity.AuthEvent{Type: identity.EventSignedOut})
	s.Equal("u-1", s.provider.State().User.ID, "late event must not mutate state")
}

func (s *ProviderSuite) TestUnmountDuringInitialRefreshKeepsLoading() {
	s.expectSubscribe()
	s.identity.EXPECT().GetSession(gomock.Any()).DoAndReturn(func(context.Context) (*identity.Session, error) {
		s.provider.Unmount()
		return nil, nil
	})

	s.Require().NoError(s.provider.Mount(context.Background()))
	s.True(s.provider.State().Loading, "initial refresh completing after unmount must not resolve")
	s.Equal(int32(1), s.sub.calls.Load())
}

func (s *ProviderSuite) TestUnmountBeforeMountDisposes() {
	s.identity.EXPECT().OnAuthStateChange(gomock.Any()).Times(0)
	s.identity.EXPECT().GetSession(gomock.Any()).Times(0)

	s.provider.Unmount()
	s.ErrorIs(s.provider.Mount(context.Background()), ErrDisposed)
	s.False(s.provider.Mounted())
	s.Zero(s.sub.calls.Load())
	select {
	case <-s.provider.Resolved():
	default:
		s.Fail("a disposed provider must not leave waiters hanging")
	}
}

func (s *ProviderSuite) TestRefreshAfterUnmountLeavesStateUntouched() {
	s.expectSubscribe()
	gomock.InOrder(
		s.identity.EXPECT().GetSession(gomock.Any()).Return(signedIn("u-1"), nil),
		s.identity.EXPECT().GetSession(gomock.Any()).Return(nil, nil),
	)
	s.Require().NoError(s.provider.Mount(context.Background()))
	s.provider.Unmount()

	s.Nil(s.provider.Refresh(context.Background()))
	s.Equal("u-1", s.provider.State().User.ID)
}

func (s *ProviderSuite) TestEventDuringSubscribeResolves() {
	s.identity.EXPECT().OnAuthStateChange(gomock.Any()).DoAndReturn(
		func(h identity.AuthStateHandler) identity.Subscription {
			s.handler = h
			h(identity.AuthEvent{Type: identity.EventInitialSession, Session: signedIn("u-3")})
			return s.sub
		})
	s.identity.EXPECT().GetSession(gomock.Any()).Return(signedIn("u-3"), nil)

	s.Require().NoError(s.provider.Mount(context.Background()))
	s.Equal("u-3", s.provider.State().User.ID)
	s.False(s.provider.State().Loading)
}

func TestProvider_ManualRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockProvider(ctrl)
	sub := &fakeSubscription{}
	idp.EXPECT().OnAuthStateChange(gomock.Any()).Return(sub)
	idp.EXPECT().GetSession(gomock.Any()).Return(nil, nil)
	idp.EXPECT().GetSession(gomock.Any()).Return(signedIn("u-9"), nil)

	p := NewProvider(idp, WithLogger(quietLogger()))
	require.NoError(t, p.Mount(context.Background()))
	require.Nil(t, p.State().User)

	got := p.Refresh(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, "u-9", p.State().User.ID)
}
