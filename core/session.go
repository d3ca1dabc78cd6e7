package core

import (
	"sync"
	"time"
)

// Role identifies the author of a history message.
type Role string

const (
	// RoleUser marks a message written by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a reply produced by the agent tree.
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's turn history: who said what, and for
// assistant entries, which agent produced the reply.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a history entry for a raw user input.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAgentMessage creates a history entry for a reply attributed to an agent.
func NewAgentMessage(agent, content string) Message {
	return Message{Role: RoleAssistant, Content: content, Agent: agent, Timestamp: time.Now()}
}

// UserProfile holds user attributes (name, plan tier, ticket history) loaded
// once when the session is bootstrapped. Values are opaque to the core.
type UserProfile map[string]any

// StringValue returns the profile value for key as a string, or "" when the
// key is absent or not a string.
func (p UserProfile) StringValue(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

// Name returns the user's display name, if present.
func (p UserProfile) Name() string { return p.StringValue("name") }

// Plan returns the user's plan tier, if present.
func (p UserProfile) Plan() string { return p.StringValue("plan") }

// clone returns a shallow copy so callers cannot mutate the stored profile.
func (p UserProfile) clone() UserProfile {
	cp := make(UserProfile, len(p))
	for k, v := range p {
		cp[k] = v
	}

	return cp
}

// Session represents one ongoing conversation. It carries an immutable
// identifier, a user profile written only at bootstrap (or explicit refresh),
// a mutable scratch area for inter-node handoff, and an append-only turn
// history. It is safe for concurrent access.
//
// Contract:
//   - ID never changes; scratch and history mutations stamp Updated
//   - Profile returns a copy; RefreshProfile is the only mutator
//   - History returns a copy limited to the most recent entries
//   - BeginTurn/EndTurn serialize turns: one turn at a time per session
type Session struct {
	ID      string `json:"id"`
	Created time.Time

	mu      sync.RWMutex
	updated time.Time
	profile UserProfile
	scratch map[string]any
	history []Message

	turnMu sync.Mutex
}

// NewSession creates an empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()

	return &Session{
		ID:      id,
		Created: now,
		updated: now,
		profile: UserProfile{},
		scratch: map[string]any{},
	}
}

// Updated returns the time of the last mutation.
func (s *Session) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.updated
}

// Profile returns a copy of the user profile. Agents read the profile; they
// never write it.
func (s *Session) Profile() UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profile.clone()
}

// RefreshProfile replaces the user profile. Called by the session store at
// bootstrap and on explicit refresh, never by agents.
func (s *Session) RefreshProfile(p UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = p.clone()
	s.updated = time.Now()
}

// ScratchValue returns the value and existence flag for a scratch key.
func (s *Session) ScratchValue(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.scratch[key]

	return v, ok
}

// SetScratch sets a scratch key/value pair.
func (s *Session) SetScratch(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scratch[key] = value
	s.updated = time.Now()
}

// ScratchSnapshot returns a copy of the full scratch map.
func (s *Session) ScratchSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]any, len(s.scratch))
	for k, v := range s.scratch {
		snap[k] = v
	}

	return snap
}

// ClearScratchExcept removes every scratch entry whose key the keep
// predicate rejects. Used by the turn processor to apply the per-key
// retention policy at turn boundaries.
func (s *Session) ClearScratchExcept(keep func(key string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.scratch {
		if keep == nil || !keep(k) {
			delete(s.scratch, k)
		}
	}

	s.updated = time.Now()
}

// AppendMessage appends a message to the turn history.
func (s *Session) AppendMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, m)
	s.updated = time.Now()
}

// History returns a copy of the turn history. A positive limit returns only
// the most recent entries; limit <= 0 returns everything.
func (s *Session) History(limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.history
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)

	return out
}

// BeginTurn blocks until no other turn is running on this session.
// Conversations are strictly serialized per session.
func (s *Session) BeginTurn() { s.turnMu.Lock() }

// EndTurn releases the turn gate acquired by BeginTurn.
func (s *Session) EndTurn() { s.turnMu.Unlock() }

// Clone returns a deep copy of the session safe for independent mutation.
// The turn gate is not copied.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Session{
		ID:      s.ID,
		Created: s.Created,
		updated: s.updated,
		profile: s.profile.clone(),
		scratch: make(map[string]any, len(s.scratch)),
		history: make([]Message, len(s.history)),
	}

	for k, v := range s.scratch {
		clone.scratch[k] = v
	}

	copy(clone.history, s.history)

	return clone
}
