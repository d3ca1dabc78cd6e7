package core

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by session stores when no session exists
// for the requested ID.
var ErrSessionNotFound = errors.New("session not found")

// ProfileLoader is the bootstrap collaborator that populates a session's
// user profile. Implementations typically front a CRM or user database.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID string) (UserProfile, error)
}

// ProfileLoaderFunc adapts a function to the ProfileLoader interface.
type ProfileLoaderFunc func(ctx context.Context, userID string) (UserProfile, error)

// LoadProfile implements ProfileLoader.
func (f ProfileLoaderFunc) LoadProfile(ctx context.Context, userID string) (UserProfile, error) {
	return f(ctx, userID)
}

// SessionStore creates and retrieves sessions. Scratch and history
// mutations go through the Session itself; the store owns the session
// lifecycle and the profile bootstrap.
type SessionStore interface {
	// Bootstrap creates a new session for the given user, loading the user
	// profile through the configured ProfileLoader exactly once.
	Bootstrap(ctx context.Context, userID string) (*Session, error)

	// Get returns the session for the given ID or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, sessionID string) error

	// RefreshProfile reloads the user profile for an existing session. This
	// is the only way a profile changes after bootstrap.
	RefreshProfile(ctx context.Context, sessionID string) error
}
