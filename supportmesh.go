// Package supportmesh provides a high-level façade over the turn runner and
// session services for building multi-agent customer support systems. Most
// applications interact with this package by:
//  1. Assembling an agent tree (router, sequential, parallel, leaf nodes)
//  2. Creating a Mesh via New() with a profile loader and retention policy
//  3. Bootstrapping sessions and processing turns with Process()
//
// The façade delegates turn orchestration to runner.Runner while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable session store
// and a structured logger.
package supportmesh

import (
	"context"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/runner"
	"github.com/hupe1980/supportmesh/session"
)

// Options configures the Mesh instance.
type Options struct {
	// SessionStore holds sessions. Defaults to an in-memory store built
	// around ProfileLoader.
	SessionStore core.SessionStore

	// ProfileLoader fetches user profiles at session bootstrap. Only used
	// when SessionStore is nil; ignored otherwise. Nil means sessions start
	// with an empty profile.
	ProfileLoader core.ProfileLoader

	// Retention whitelists the scratch keys that survive turn boundaries.
	Retention runner.RetentionPolicy

	// FallbackReply overrides the graceful apology used for failed turns.
	FallbackReply string

	// MaxModelCallsPerTurn caps model calls per turn across all nodes.
	MaxModelCallsPerTurn int

	// TurnTimeout bounds end-to-end processing of one turn.
	TurnTimeout time.Duration

	// MaxConcurrentTurns limits turns executing simultaneously across all
	// sessions, providing backpressure. Zero or negative means unlimited.
	MaxConcurrentTurns int

	// Logger receives lifecycle events. Defaults to NoOp.
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the agent tree, session store
// and turn runner.
type Mesh struct {
	root   core.Agent
	store  core.SessionStore
	runner *runner.Runner
	sem    chan struct{}
}

// New creates a Mesh around the given root agent. Unset services are
// initialized with in-memory implementations.
func New(root core.Agent, optFns ...func(o *Options)) *Mesh {
	opts := Options{
		MaxConcurrentTurns: 16,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	store := opts.SessionStore
	if store == nil {
		store = session.NewInMemoryStore(opts.ProfileLoader, func(o *session.InMemoryStoreOptions) {
			o.Logger = opts.Logger
		})
	}

	r := runner.New(root, store, func(o *runner.Options) {
		o.Retention = opts.Retention
		o.FallbackReply = opts.FallbackReply
		o.MaxModelCallsPerTurn = opts.MaxModelCallsPerTurn
		o.TurnTimeout = opts.TurnTimeout
		o.Logger = opts.Logger
	})

	var sem chan struct{}
	if opts.MaxConcurrentTurns > 0 {
		sem = make(chan struct{}, opts.MaxConcurrentTurns)
	}

	return &Mesh{
		root:   root,
		store:  store,
		runner: r,
		sem:    sem,
	}
}

// Root returns the agent tree's root node.
func (m *Mesh) Root() core.Agent { return m.root }

// Store returns the underlying session store.
func (m *Mesh) Store() core.SessionStore { return m.store }

// CreateSession bootstraps a session for the given user, loading their
// profile through the configured loader.
func (m *Mesh) CreateSession(ctx context.Context, userID string) (*core.Session, error) {
	return m.store.Bootstrap(ctx, userID)
}

// DeleteSession removes a session. Deleting an unknown session is a no-op.
func (m *Mesh) DeleteSession(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// Process runs one conversational turn on the session. Turns on the same
// session are serialized; concurrent turns across sessions are admitted up
// to MaxConcurrentTurns. The returned Turn is well-formed even on failure,
// carrying a graceful fallback reply alongside the classified error.
func (m *Mesh) Process(ctx context.Context, sessionID, input string) (*core.Turn, error) {
	if m.sem != nil {
		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return m.runner.Process(ctx, sessionID, input)
}

// ProcessAll runs a scripted transcript of inputs in order on one session
// and returns one Turn per processed input. It stops at the first failed
// turn; the turns completed so far are returned alongside the error.
func (m *Mesh) ProcessAll(ctx context.Context, sessionID string, inputs ...string) ([]*core.Turn, error) {
	turns := make([]*core.Turn, 0, len(inputs))

	for _, input := range inputs {
		turn, err := m.Process(ctx, sessionID, input)
		if turn != nil {
			turns = append(turns, turn)
		}

		if err != nil {
			return turns, err
		}
	}

	return turns, nil
}
