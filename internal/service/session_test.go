package service

import (
	"sync"
	"testing"
	"time"

	"stop-game-be/internal/service/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mock.Mock
}

func (m *mockConn) TrySend(msg dto.ResponseWrapper) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *mockConn) Close() {
	m.Called()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSessions(t *testing.T, grace time.Duration) (*Sessions, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Now()}
	s := NewSessions(NewTokenManager("test-secret", time.Hour), grace, WithSessionClock(clock.Now))
	t.Cleanup(s.Close)

	return s, clock
}

func TestSessions_AttachAndSend(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	conn := &mockConn{}
	msg := dto.WrapResponse(dto.RESP_PLAYER_JOINED, nil)
	conn.On("TrySend", msg).Return(nil).Once()

	id, token, err := s.Attach(conn)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEmpty(t, token)
	assert.True(t, s.IsConnected(id))

	require.NoError(t, s.Send(id, msg))
	assert.ErrorIs(t, s.Send("nobody", msg), ErrNoConnection)

	conn.AssertExpectations(t)
}

func TestSessions_NotifyIsolatesFailures(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)
	msg := dto.WrapResponse(dto.RESP_CHAT_MESSAGE_RECEIVED, nil)

	slow := &mockConn{}
	slow.On("TrySend", msg).Return(ErrBackpressure)
	fast := &mockConn{}
	fast.On("TrySend", msg).Return(nil)

	slowID, _, err := s.Attach(slow)
	require.NoError(t, err)
	fastID, _, err := s.Attach(fast)
	require.NoError(t, err)

	res := s.Notify([]string{slowID, "gone", fastID}, msg)

	assert.Equal(t, []string{fastID}, res.SentTo)
	assert.ElementsMatch(t, []string{slowID, "gone"}, res.Dropped)
	fast.AssertNumberOfCalls(t, "TrySend", 1)
}

func TestSessions_ResumeWithinGrace(t *testing.T) {
	s, clock := newTestSessions(t, 10*time.Second)

	var expired []string
	s.OnExpire(func(id string) { expired = append(expired, id) })

	first := &mockConn{}
	id, token, err := s.Attach(first)
	require.NoError(t, err)

	s.Detach(id, first)
	assert.False(t, s.IsConnected(id))

	clock.Advance(5 * time.Second)
	assert.Empty(t, s.sweep(clock.Now()))

	second := &mockConn{}
	resumedID, newToken, err := s.Resume(token, second)
	require.NoError(t, err)
	assert.Equal(t, id, resumedID)
	assert.NotEmpty(t, newToken)
	assert.True(t, s.IsConnected(id))

	clock.Advance(time.Minute)
	assert.Empty(t, s.sweep(clock.Now()))
	assert.Empty(t, expired)
}

func TestSessions_ResumeClosesPreviousConn(t *testing.T) {
	s, _ := newTestSessions(t, 10*time.Second)

	first := &mockConn{}
	first.On("Close").Return().Once()

	id, token, err := s.Attach(first)
	require.NoError(t, err)

	second := &mockConn{}
	_, _, err = s.Resume(token, second)
	require.NoError(t, err)
	first.AssertExpectations(t)

	// the superseded connection's late Detach must not unbind the new one
	s.Detach(id, first)
	assert.True(t, s.IsConnected(id))
}

func TestSessions_ExpireAfterGrace(t *testing.T) {
	s, clock := newTestSessions(t, 10*time.Second)

	var expired []string
	s.OnExpire(func(id string) { expired = append(expired, id) })

	conn := &mockConn{}
	id, token, err := s.Attach(conn)
	require.NoError(t, err)

	s.Detach(id, conn)
	clock.Advance(10 * time.Second)

	assert.Equal(t, []string{id}, s.sweep(clock.Now()))
	assert.Equal(t, []string{id}, expired)

	_, _, err = s.Resume(token, &mockConn{})
	assert.ErrorIs(t, err, ErrSessionGone)
}

func TestSessions_ZeroGraceExpiresImmediately(t *testing.T) {
	s, _ := newTestSessions(t, 0)

	var expired []string
	s.OnExpire(func(id string) { expired = append(expired, id) })

	conn := &mockConn{}
	id, _, err := s.Attach(conn)
	require.NoError(t, err)

	s.Detach(id, conn)
	assert.Equal(t, []string{id}, expired)
}

func TestSessions_ResumeRejectsBadToken(t *testing.T) {
	s, _ := newTestSessions(t, time.Minute)

	_, _, err := s.Resume("garbage", &mockConn{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
