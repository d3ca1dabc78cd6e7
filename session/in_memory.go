package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
)

// InMemoryStoreOptions configure an InMemoryStore.
type InMemoryStoreOptions struct {
	// Logger receives store lifecycle events. Defaults to silence.
	Logger logging.Logger
	// NewID generates session IDs. Defaults to core.NewID.
	NewID func() string
}

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. It is safe for concurrent access and best suited for tests or
// single-process deployments.
//
// Get returns the live *core.Session, not a copy: the session carries its
// own locks (including the turn gate that serializes turns), so every
// caller must see the same instance. The user profile is loaded through the
// ProfileLoader exactly once at bootstrap and only changes on an explicit
// RefreshProfile.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	loader   core.ProfileLoader
	logger   logging.Logger
	newID    func() string
}

// entry pairs a session with the user it was bootstrapped for, so the
// profile can be reloaded later.
type entry struct {
	sess   *core.Session
	userID string
}

// NewInMemoryStore constructs an empty in-memory session store. A nil
// loader is allowed; sessions then start with an empty profile.
func NewInMemoryStore(loader core.ProfileLoader, optFns ...func(o *InMemoryStoreOptions)) *InMemoryStore {
	opts := InMemoryStoreOptions{
		Logger: logging.NoOpLogger{},
		NewID:  core.NewID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		sessions: make(map[string]*entry),
		loader:   loader,
		logger:   opts.Logger,
		newID:    opts.NewID,
	}
}

// Bootstrap implements core.SessionStore.
func (s *InMemoryStore) Bootstrap(ctx context.Context, userID string) (*core.Session, error) {
	profile := core.UserProfile{}

	if s.loader != nil {
		loaded, err := s.loader.LoadProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("profile bootstrap for user %s: %w", userID, err)
		}

		profile = loaded
	}

	sess := core.NewSession(s.newID())
	sess.RefreshProfile(profile)

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{sess: sess, userID: userID}
	s.mu.Unlock()

	s.logger.Debug("session.bootstrap", "session_id", sess.ID, "user_id", userID)

	return sess, nil
}

// Get implements core.SessionStore.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}

	return e.sess, nil
}

// Delete implements core.SessionStore.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)

	s.logger.Debug("session.delete", "session_id", sessionID)

	return nil
}

// RefreshProfile implements core.SessionStore.
func (s *InMemoryStore) RefreshProfile(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return core.ErrSessionNotFound
	}

	if s.loader == nil {
		return nil
	}

	profile, err := s.loader.LoadProfile(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("profile refresh for session %s: %w", sessionID, err)
	}

	e.sess.RefreshProfile(profile)

	s.logger.Debug("session.profile_refresh", "session_id", sessionID, "user_id", e.userID)

	return nil
}

// Count returns the number of stored sessions.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
