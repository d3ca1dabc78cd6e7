package agent

import (
	"context"
	"testing"

	"github.com/hupe1980/supportmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAgent_Execute_ThreadsOutput(t *testing.T) {
	agent := NewSequential("Pipeline", echoStub("A"), echoStub("B"))

	_, turn, tc := newTestTurn("start")

	output, err := agent.Execute(context.Background(), tc, "start")

	require.NoError(t, err)
	assert.Equal(t, "B: A: start", output)
	assert.Equal(t, []string{"Pipeline", "A", "B"}, turn.RoutingTrace)
}

func TestSequentialAgent_Execute_BranchExtended(t *testing.T) {
	var branches []string

	capture := func(name string) *stubAgent {
		return newStubAgent(name, func(_ context.Context, tc *core.TurnContext, input string) (string, error) {
			branches = append(branches, tc.Branch)
			return input, nil
		})
	}

	agent := NewSequential("Pipeline", capture("A"), capture("B"))

	_, _, tc := newTestTurn("x")

	_, err := agent.Execute(context.Background(), tc, "x")

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, branches)
	assert.Equal(t, "", tc.Branch)
}

func TestSequentialAgent_Execute_ScratchFlowsForward(t *testing.T) {
	writer := newStubAgent("Research", func(_ context.Context, tc *core.TurnContext, input string) (string, error) {
		tc.SetScratch("findings", "order 12345 shipped")
		return input, nil
	})
	reader := newStubAgent("Diagnosis", func(_ context.Context, tc *core.TurnContext, _ string) (string, error) {
		v, ok := tc.ScratchValue("findings")
		require.True(t, ok)

		return v.(string), nil
	})

	agent := NewSequential("Pipeline", writer, reader)

	_, _, tc := newTestTurn("where is my order?")

	output, err := agent.Execute(context.Background(), tc, "where is my order?")

	require.NoError(t, err)
	assert.Equal(t, "order 12345 shipped", output)
}

func TestSequentialAgent_Execute_FailFast(t *testing.T) {
	failing := newStubAgent("Broken", func(context.Context, *core.TurnContext, string) (string, error) {
		return "", assert.AnError
	})

	ran := false
	after := newStubAgent("After", func(_ context.Context, _ *core.TurnContext, input string) (string, error) {
		ran = true
		return input, nil
	})

	agent := NewSequential("Pipeline", failing, after)

	_, _, tc := newTestTurn("x")

	_, err := agent.Execute(context.Background(), tc, "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "sequential execution failed at agent Broken")
	assert.False(t, ran)
}

func TestSequentialAgent_Execute_NoChildren(t *testing.T) {
	agent := NewSequential("Empty")

	_, _, tc := newTestTurn("pass through")

	output, err := agent.Execute(context.Background(), tc, "pass through")

	require.NoError(t, err)
	assert.Equal(t, "pass through", output)
}

func TestSequentialAgent_Execute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := newStubAgent("First", func(_ context.Context, _ *core.TurnContext, input string) (string, error) {
		cancel()
		return input, nil
	})

	ran := false
	second := newStubAgent("Second", func(_ context.Context, _ *core.TurnContext, input string) (string, error) {
		ran = true
		return input, nil
	})

	agent := NewSequential("Pipeline", first, second)

	_, _, tc := newTestTurn("x")

	_, err := agent.Execute(ctx, tc, "x")

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}
