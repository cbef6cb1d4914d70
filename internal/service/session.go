package service

import (
	"errors"
	"sync"
	"time"

	"stop-game-be/internal/service/dto"

	"go.uber.org/zap"
)

const SWEEP_INTERVAL = time.Second

var ErrSessionGone = errors.New("session no longer exists")

// Sessions maps logical player identities to their current connection. An
// identity survives a dropped connection for the grace period so the client
// can resume with its token; after that the expire hook runs and the identity
// is forgotten.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session

	tokens   *TokenManager
	grace    time.Duration
	now      func() time.Time
	onExpire func(playerID string)

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type session struct {
	conn Conn
	// zero while a connection is attached
	detachedAt time.Time
}

type SessionOption func(*Sessions)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Sessions) { s.now = now }
}

func NewSessions(tokens *TokenManager, grace time.Duration, opts ...SessionOption) *Sessions {
	s := &Sessions{
		sessions: make(map[string]*session),
		tokens:   tokens,
		grace:    grace,
		now:      time.Now,
		closing:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnExpire sets the hook run when a detached identity outlives its grace
// period. It is called without any lock held.
func (s *Sessions) OnExpire(fn func(playerID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onExpire = fn
}

// Attach registers conn under a brand new identity.
func (s *Sessions) Attach(conn Conn) (playerID string, token string, err error) {
	playerID = GenID()

	token, err = s.tokens.Generate(playerID, s.now())
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	s.sessions[playerID] = &session{conn: conn}
	s.mu.Unlock()

	zap.L().Info("session attached", zap.String("player_id", playerID))

	return playerID, token, nil
}

// Resume rebinds an existing identity to conn. The previous connection, if
// still open, is closed.
func (s *Sessions) Resume(token string, conn Conn) (playerID string, newToken string, err error) {
	playerID, err = s.tokens.Verify(token)
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	sess, ok := s.sessions[playerID]
	if !ok {
		s.mu.Unlock()
		return "", "", ErrSessionGone
	}
	old := sess.conn
	sess.conn = conn
	sess.detachedAt = time.Time{}
	s.mu.Unlock()

	if old != nil && old != conn {
		old.Close()
	}

	newToken, err = s.tokens.Generate(playerID, s.now())
	if err != nil {
		return "", "", err
	}

	zap.L().Info("session resumed", zap.String("player_id", playerID))

	return playerID, newToken, nil
}

// Detach marks the player's connection as gone. A conn that has already been
// replaced by Resume is ignored.
func (s *Sessions) Detach(playerID string, conn Conn) {
	s.mu.Lock()
	sess, ok := s.sessions[playerID]
	if !ok || sess.conn != conn {
		s.mu.Unlock()
		return
	}

	sess.conn = nil
	sess.detachedAt = s.now()

	if s.grace > 0 {
		s.mu.Unlock()
		zap.L().Info("session detached", zap.String("player_id", playerID), zap.Duration("grace", s.grace))
		return
	}

	delete(s.sessions, playerID)
	hook := s.onExpire
	s.mu.Unlock()

	s.expire(hook, playerID)
}

func (s *Sessions) Send(playerID string, msg dto.ResponseWrapper) error {
	s.mu.Lock()
	sess, ok := s.sessions[playerID]
	var conn Conn
	if ok {
		conn = sess.conn
	}
	s.mu.Unlock()

	if conn == nil {
		return ErrNoConnection
	}

	return conn.TrySend(msg)
}

func (s *Sessions) IsConnected(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[playerID]
	return ok && sess.conn != nil
}

// Start runs the grace-period janitor until Close.
func (s *Sessions) Start() {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(SWEEP_INTERVAL)
		defer ticker.Stop()

		for {
			select {
			case <-s.closing:
				return
			case <-ticker.C:
				s.sweep(s.now())
			}
		}
	}()
}

func (s *Sessions) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
	s.wg.Wait()
}

// sweep expires every detached session whose grace period ended before now.
func (s *Sessions) sweep(now time.Time) []string {
	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.conn == nil && !sess.detachedAt.IsZero() && now.Sub(sess.detachedAt) >= s.grace {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	hook := s.onExpire
	s.mu.Unlock()

	for _, id := range expired {
		s.expire(hook, id)
	}

	return expired
}

func (s *Sessions) expire(hook func(string), playerID string) {
	zap.L().Info("session expired", zap.String("player_id", playerID))

	if hook != nil {
		hook(playerID)
	}
}
