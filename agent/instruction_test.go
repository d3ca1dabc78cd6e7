package agent

import (
	"testing"

	"github.com/hupe1980/supportmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstruction_Resolve_StaticText(t *testing.T) {
	_, _, tc := newTestTurn("hi")

	instr := NewInstructionFromText("You are a billing specialist.")
	assert.True(t, instr.IsStatic())

	text, err := instr.Resolve(tc)

	require.NoError(t, err)
	assert.Equal(t, "You are a billing specialist.", text)
}

func TestInstruction_Resolve_Template(t *testing.T) {
	sess, _, tc := newTestTurn("hi")
	sess.SetScratch("lastTicketId", "TICKET-1234")
	sess.SetScratch("Research.KBSearch.result", "KB001")

	instr := NewInstructionFromText(
		`Help {{.profile.name}}. Open ticket: {{state "lastTicketId"}}. Article: {{state "Research.KBSearch.result"}}.`,
	)

	text, err := instr.Resolve(tc)

	require.NoError(t, err)
	assert.Equal(t, "Help John Smith. Open ticket: TICKET-1234. Article: KB001.", text)
}

func TestInstruction_Resolve_Provider(t *testing.T) {
	_, _, tc := newTestTurn("hi")

	instr := NewInstructionFromFunc(func(tc *core.TurnContext) (string, error) {
		return "Session " + tc.Session.ID, nil
	})
	assert.False(t, instr.IsStatic())

	text, err := instr.Resolve(tc)

	require.NoError(t, err)
	assert.Equal(t, "Session sess-test", text)
}

func TestInstruction_Resolve_ProviderError(t *testing.T) {
	_, _, tc := newTestTurn("hi")

	instr := NewInstructionFromFunc(func(*core.TurnContext) (string, error) {
		return "", assert.AnError
	})

	_, err := instr.Resolve(tc)

	assert.ErrorIs(t, err, assert.AnError)
}

func TestInstruction_Resolve_MalformedTemplate(t *testing.T) {
	_, _, tc := newTestTurn("hi")

	instr := NewInstructionFromText("Broken {{.profile.name")

	_, err := instr.Resolve(tc)

	assert.Error(t, err)
}
