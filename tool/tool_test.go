package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/logging"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	// Properties present
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes non-pointer, non-omitempty exported fields
	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		// Use []any to mirror possible JSON decoded schema shape
		"required": []any{"x"},
	}

	// Success
	err := util.ValidateParameters(map[string]any{"x": 5}, schema)
	assert.NoError(t, err)

	// Missing required
	err = util.ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Equal(t, "x", vErr.Field)
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	// Wrong type
	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Contains(t, vErr.Message, "expected type integer")
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

// -------------------- Test Helpers --------------------

func testTurnCtx(t *testing.T) *core.TurnContext {
	t.Helper()

	sess := core.NewSession("session-1")
	turn := core.NewTurn(sess.ID, "hello")
	tc := core.NewTurnContext(sess, turn, 0, logging.NoOpLogger{})
	tc.Agent = core.AgentInfo{Name: "Order", Kind: core.KindLeaf}

	return tc
}

func testToolCtx(t *testing.T) *core.ToolContext {
	t.Helper()

	return core.NewToolContext(testTurnCtx(t), "test", "fc1")
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
		a := args["a"].(float64)
		b := args["b"].(float64)
		return a + b, nil
	})

	result, err := sumTool.Call(context.Background(), testToolCtx(t), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	tTool := NewFunctionTool("test", "Test", params, func(_ context.Context, _ *core.ToolContext, _ map[string]any) (any, error) {
		return 0, nil
	})
	_, err := tTool.Call(context.Background(), testToolCtx(t), map[string]any{})
	assert.Error(t, err)
	toolErr, ok := err.(*ToolError)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidArgs, toolErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool := NewFunctionTool("fail", "Fails", params, func(_ context.Context, _ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	_, err := execTool.Call(context.Background(), testToolCtx(t), map[string]any{})
	assert.Error(t, err)
	toolErr, ok := err.(*ToolError)
	assert.True(t, ok)
	assert.Equal(t, CodeUpstream, toolErr.Code)
}

func TestFunctionTool_PassesThroughToolError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	custom := NewToolError("lookup", "record missing", CodeNotFound)
	failTool := NewFunctionTool("lookup", "Lookup", params, func(_ context.Context, _ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, custom
	})
	_, err := failTool.Call(context.Background(), testToolCtx(t), map[string]any{})
	assert.Same(t, custom, err)
}

func TestFunctionToolFromStruct_DerivedSchemaDrivesValidation(t *testing.T) {
	type lookupArgs struct {
		TicketID string `json:"ticket_id" description:"Ticket identifier"`
		Limit    *int   `json:"limit" description:"Optional result cap"`
	}

	ft := NewFunctionToolFromStruct(
		"lookup_ticket",
		"Look up a ticket by ID.",
		lookupArgs{},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			return args["ticket_id"], nil
		},
	)

	props, ok := ft.Parameters()["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "ticket_id")
	assert.Contains(t, props, "limit")

	req, _ := ft.Parameters()["required"].([]string)
	assert.ElementsMatch(t, []string{"ticket_id"}, req)

	_, err := ft.Call(context.Background(), testToolCtx(t), map[string]any{})
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeInvalidArgs, te.Code)

	out, err := ft.Call(context.Background(), testToolCtx(t), map[string]any{"ticket_id": "TICKET-789"})
	require.NoError(t, err)
	assert.Equal(t, "TICKET-789", out)
}

func TestToolError_Format(t *testing.T) {
	err := NewToolError("get_order_status", "order not found", CodeNotFound)
	assert.Equal(t, "tool error [NOT_FOUND] in get_order_status: order not found", err.Error())

	bare := &ToolError{Tool: "x", Message: "failed"}
	assert.Equal(t, "tool error in x: failed", bare.Error())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, CodeTimeout, ErrorKind(NewToolError("t", "slow", CodeTimeout)))
	assert.Equal(t, CodeTimeout, ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, CodeUpstream, ErrorKind(errors.New("boom")))
}

// -------------------- Adapter Tests --------------------

func noArgs() map[string]any { return map[string]any{} }

func echoTool(name string) Tool {
	return NewFunctionTool(name, "Echo", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ *core.ToolContext, _ map[string]any) (any, error) {
			return name, nil
		})
}

func TestAdapter_RegisterRejectsDuplicates(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Register(echoTool("one")))

	err := a.Register(echoTool("one"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestAdapter_Definitions(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Register(echoTool("one"), echoTool("two")))

	defs := a.Definitions([]string{"one", "missing", "two"})
	assert.Len(t, defs, 2)
	assert.Equal(t, "one", defs[0].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
}

func TestAdapter_Invoke_Unauthorized(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Register(echoTool("one")))

	tc := testTurnCtx(t)
	_, err := a.Invoke(context.Background(), tc, Invocation{
		CallID: "fc1", Agent: "Order", Name: "one", Authorized: []string{"other"},
	})
	assert.Error(t, err)
	assert.Equal(t, CodeUnauthorized, ErrorKind(err))

	require.Len(t, tc.Turn.ToolCalls, 1)
	assert.Equal(t, CodeUnauthorized, tc.Turn.ToolCalls[0].ErrorKind)
}

func TestAdapter_Invoke_NotFound(t *testing.T) {
	a := NewAdapter()

	tc := testTurnCtx(t)
	_, err := a.Invoke(context.Background(), tc, Invocation{
		CallID: "fc1", Agent: "Order", Name: "missing", Authorized: []string{"missing"},
	})
	assert.Error(t, err)
	assert.Equal(t, CodeNotFound, ErrorKind(err))
}

func TestAdapter_Invoke_RecordsSuccess(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Register(echoTool("one")))

	tc := testTurnCtx(t)
	result, err := a.Invoke(context.Background(), tc, Invocation{
		CallID: "fc1", Agent: "Order", Name: "one", Args: noArgs(), Authorized: []string{"one"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "one", result)

	require.Len(t, tc.Turn.ToolCalls, 1)
	rec := tc.Turn.ToolCalls[0]
	assert.Equal(t, "one", rec.Tool)
	assert.Equal(t, "Order", rec.Agent)
	assert.Equal(t, "one", rec.Result)
	assert.Empty(t, rec.ErrorKind)
	assert.GreaterOrEqual(t, rec.Latency, time.Duration(0))
}

func TestAdapter_Invoke_Timeout(t *testing.T) {
	slow := NewFunctionTool("slow", "Sleeps", map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ *core.ToolContext, _ map[string]any) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return "done", nil
			}
		})

	a := NewAdapter(func(o *AdapterOptions) { o.Timeout = 20 * time.Millisecond })
	require.NoError(t, a.Register(slow))

	tc := testTurnCtx(t)
	_, err := a.Invoke(context.Background(), tc, Invocation{
		CallID: "fc1", Agent: "Research", Name: "slow", Args: noArgs(), Authorized: []string{"slow"},
	})
	assert.Error(t, err)
	assert.Equal(t, CodeTimeout, ErrorKind(err))

	require.Len(t, tc.Turn.ToolCalls, 1)
	assert.Equal(t, CodeTimeout, tc.Turn.ToolCalls[0].ErrorKind)
}

func TestAdapter_Invoke_TurnCanceledPropagates(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Register(echoTool("one")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Invoke(ctx, testTurnCtx(t), Invocation{
		CallID: "fc1", Agent: "Order", Name: "one", Args: noArgs(), Authorized: []string{"one"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdapter_Invoke_PanicContained(t *testing.T) {
	boom := NewFunctionTool("boom", "Panics", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ *core.ToolContext, _ map[string]any) (any, error) {
			panic("kaboom")
		})

	a := NewAdapter()
	require.NoError(t, a.Register(boom))

	_, err := a.Invoke(context.Background(), testTurnCtx(t), Invocation{
		CallID: "fc1", Agent: "Order", Name: "boom", Args: noArgs(), Authorized: []string{"boom"},
	})
	assert.Error(t, err)
	assert.Equal(t, CodeUpstream, ErrorKind(err))
	assert.Contains(t, err.Error(), "panic")
}

func TestAdapter_InvokeAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Register(echoTool("first"), echoTool("third")))

	tc := testTurnCtx(t)
	auth := []string{"first", "second", "third"}
	results := a.InvokeAll(context.Background(), tc, []Invocation{
		{CallID: "fc1", Agent: "Research", Name: "first", Args: noArgs(), Authorized: auth},
		{CallID: "fc2", Agent: "Research", Name: "second", Args: noArgs(), Authorized: auth},
		{CallID: "fc3", Agent: "Research", Name: "third", Args: noArgs(), Authorized: auth},
	}, 2)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Result)
	assert.Equal(t, CodeNotFound, ErrorKind(results[1].Err))
	assert.Equal(t, "third", results[2].Result)

	assert.Len(t, tc.Turn.ToolCalls, 3)
}
