package main

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

const (
	// SessionIdleTTL is how long an unused backend session is kept
	SessionIdleTTL = 30 * time.Minute

	// SessionCleanupInterval is how often idle sessions are evicted
	SessionCleanupInterval = 5 * time.Minute
)

// gatewayFactory builds a gateway with its own cookie jar
type gatewayFactory func() (gateway.Gateway, error)

type session struct {
	gw       gateway.Gateway
	lastUsed time.Time
}

// sessionStore hands each Mattermost user their own gateway, so a backend
// login made by one user is never reused for another. Sessions idle for
// longer than the TTL are dropped along with their cookie jar and limiter.
type sessionStore struct {
	mu          sync.Mutex
	factory     gatewayFactory
	sessions    map[string]*session
	ttl         time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
}

// newSessionStore creates a store and starts its cleanup loop
func newSessionStore(factory gatewayFactory) *sessionStore {
	s := &sessionStore{
		factory:     factory,
		sessions:    make(map[string]*session),
		ttl:         SessionIdleTTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Get returns the user's gateway, creating it on first use or after it
// went idle for longer than the TTL.
func (s *sessionStore) Get(userID string) (gateway.Gateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[userID]; ok {
		if now.Sub(sess.lastUsed) <= s.ttl {
			sess.lastUsed = now
			return sess.gw, nil
		}
		delete(s.sessions, userID)
	}

	if s.factory == nil {
		return nil, errBackendNotConfigured
	}

	gw, err := s.factory()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create backend session")
	}

	s.sessions[userID] = &session{gw: gw, lastUsed: now}
	return gw, nil
}

// Forget drops the user's session
func (s *sessionStore) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Reset drops every session and switches to a new factory. Called when the
// backend settings change; a nil factory means no backend is configured.
func (s *sessionStore) Reset(factory gatewayFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factory = factory
	s.sessions = make(map[string]*session)
}

// Len returns the number of open sessions
func (s *sessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionStore) cleanupLoop() {
	ticker := time.NewTicker(SessionCleanupInterval)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup evicts sessions idle for longer than the TTL and returns how many
func (s *sessionStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for userID, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.sessions, userID)
			evicted++
		}
	}
	return evicted
}

// Stop stops the cleanup goroutine and waits for it to finish. Safe to call more than once.
func (s *sessionStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
	<-s.cleanupDone
}
