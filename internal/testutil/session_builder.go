package testutil

import (
	"github.com/hupe1980/supportmesh/core"
)

// SessionBuilder assembles pre-populated sessions with fluent chaining.
// Example:
//
//	sess := testutil.NewSessionBuilder("sess-1").
//		Profile(core.UserProfile{"name": "John Smith"}).
//		Scratch("lastTicketId", "TICKET-789").
//		User("where is my order?").
//		Agent("Order", "it shipped").
//		Build()
type SessionBuilder struct {
	id       string
	profile  core.UserProfile
	scratch  map[string]any
	messages []core.Message
}

// NewSessionBuilder creates a builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, scratch: map[string]any{}}
}

// Profile sets the session's user profile (chainable).
func (b *SessionBuilder) Profile(p core.UserProfile) *SessionBuilder {
	b.profile = p
	return b
}

// Scratch seeds a scratch key/value pair (chainable).
func (b *SessionBuilder) Scratch(key string, val any) *SessionBuilder {
	b.scratch[key] = val
	return b
}

// User appends a user message to the history (chainable).
func (b *SessionBuilder) User(content string) *SessionBuilder {
	b.messages = append(b.messages, core.NewUserMessage(content))
	return b
}

// Agent appends an agent reply to the history (chainable).
func (b *SessionBuilder) Agent(name, content string) *SessionBuilder {
	b.messages = append(b.messages, core.NewAgentMessage(name, content))
	return b
}

// Message appends an arbitrary message to the history (chainable).
func (b *SessionBuilder) Message(m core.Message) *SessionBuilder {
	b.messages = append(b.messages, m)
	return b
}

// Build returns the assembled session.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)

	if b.profile != nil {
		s.RefreshProfile(b.profile)
	}

	for k, v := range b.scratch {
		s.SetScratch(k, v)
	}

	for _, m := range b.messages {
		s.AppendMessage(m)
	}

	return s
}
