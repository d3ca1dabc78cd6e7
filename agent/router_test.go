package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouterFixture(optFns ...func(o *RouterOptions)) (*model.MockModel, *RouterAgent) {
	llm := model.NewMockModel("mock", "mock")

	billing := echoStub("Billing")
	billing.SetDescription("Invoices, refunds and subscription changes")

	order := echoStub("Order")
	order.SetDescription("Order status and shipping")

	escalation := echoStub("Escalation")
	escalation.SetDescription("Everything no specialist covers")

	router := NewRouter("Coordinator", llm, []core.Agent{billing, order, escalation}, optFns...)

	return llm, router
}

func TestRouterAgent_Execute_DispatchesByLabel(t *testing.T) {
	llm, router := newRouterFixture()
	llm.AddClassification("my invoice is wrong", "Billing")

	_, turn, tc := newTestTurn("my invoice is wrong")

	output, err := router.Execute(context.Background(), tc, "my invoice is wrong")

	require.NoError(t, err)
	assert.Equal(t, "Billing: my invoice is wrong", output)
	assert.Equal(t, []string{"Coordinator", "Billing"}, turn.RoutingTrace)
	assert.Equal(t, "Billing", turn.HandledBy())
}

func TestRouterAgent_Execute_LabelMatchIsCaseInsensitive(t *testing.T) {
	llm, router := newRouterFixture()
	llm.QueueClassification("  billing.\n")

	_, _, tc := newTestTurn("refund please")

	output, err := router.Execute(context.Background(), tc, "refund please")

	require.NoError(t, err)
	assert.Equal(t, "Billing: refund please", output)
}

func TestRouterAgent_Execute_ClassifierSeesChildDescriptions(t *testing.T) {
	llm, router := newRouterFixture()
	llm.QueueClassification("Order")

	_, _, tc := newTestTurn("where is my package?")

	_, err := router.Execute(context.Background(), tc, "where is my package?")

	require.NoError(t, err)

	req := llm.LastClassifyRequest()
	require.NotNil(t, req)
	assert.Equal(t, []string{"Billing", "Order", "Escalation"}, req.Labels)
	assert.Contains(t, req.Instructions, "Order status and shipping")
	assert.Contains(t, req.Context, "Customer: John Smith (plan: Pro)")
}

func TestRouterAgent_Execute_ContextCarriesScratchAndHistory(t *testing.T) {
	llm, router := newRouterFixture()
	llm.QueueClassification("Escalation")

	sess, _, tc := newTestTurn("is my ticket resolved?")
	sess.SetScratch("lastTicketId", "TICKET-1234")
	sess.AppendMessage(core.NewUserMessage("my api returns 500s"))
	sess.AppendMessage(core.NewAgentMessage("Escalation", "I filed TICKET-1234 for you."))

	_, err := router.Execute(context.Background(), tc, "is my ticket resolved?")

	require.NoError(t, err)

	req := llm.LastClassifyRequest()
	require.NotNil(t, req)
	assert.Contains(t, req.Context, "lastTicketId: TICKET-1234")
	assert.Contains(t, req.Context, "I filed TICKET-1234 for you.")
}

func TestRouterAgent_Execute_UnknownLabelFallsBackToDefault(t *testing.T) {
	llm, router := newRouterFixture(func(o *RouterOptions) {
		o.DefaultChild = "Escalation"
	})
	llm.QueueClassification("Gardening")

	_, turn, tc := newTestTurn("help")

	output, err := router.Execute(context.Background(), tc, "help")

	require.NoError(t, err)
	assert.Equal(t, "Escalation: help", output)
	assert.Equal(t, "Escalation", turn.HandledBy())
}

func TestRouterAgent_Execute_UnknownLabelWithoutDefault(t *testing.T) {
	llm, router := newRouterFixture()
	llm.QueueClassification("Gardening")

	_, _, tc := newTestTurn("help")

	_, err := router.Execute(context.Background(), tc, "help")

	require.Error(t, err)

	var routingErr *RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, RoutingUnknownTarget, routingErr.Kind)
	assert.Equal(t, "Gardening", routingErr.Label)
	assert.Equal(t, "Coordinator", routingErr.Router)
}

func TestRouterAgent_Execute_ClassifierErrorFallsBackToDefault(t *testing.T) {
	llm, router := newRouterFixture(func(o *RouterOptions) {
		o.DefaultChild = "Escalation"
	})
	llm.FailClassifications(assert.AnError)

	_, _, tc := newTestTurn("help")

	output, err := router.Execute(context.Background(), tc, "help")

	require.NoError(t, err)
	assert.Equal(t, "Escalation: help", output)
}

func TestRouterAgent_Execute_ClassifierErrorWithoutDefault(t *testing.T) {
	llm, router := newRouterFixture()
	llm.FailClassifications(assert.AnError)

	_, _, tc := newTestTurn("help")

	_, err := router.Execute(context.Background(), tc, "help")

	require.Error(t, err)

	var routingErr *RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, RoutingNoDefault, routingErr.Kind)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRouterAgent_Execute_EmptyLabelFallsBackToDefault(t *testing.T) {
	llm, router := newRouterFixture(func(o *RouterOptions) {
		o.DefaultChild = "Escalation"
	})
	llm.QueueClassification("")

	_, _, tc := newTestTurn("help")

	output, err := router.Execute(context.Background(), tc, "help")

	require.NoError(t, err)
	assert.Equal(t, "Escalation: help", output)
}

func TestRouterAgent_Execute_TimeoutNeverFallsBack(t *testing.T) {
	llm, router := newRouterFixture(func(o *RouterOptions) {
		o.DefaultChild = "Escalation"
		o.ClassifyTimeout = 20 * time.Millisecond
	})
	llm.SetDelay(200 * time.Millisecond)

	_, _, tc := newTestTurn("help")

	_, err := router.Execute(context.Background(), tc, "help")

	require.Error(t, err)

	var routingErr *RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, RoutingTimeout, routingErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRouterAgent_Execute_TurnCanceledPropagates(t *testing.T) {
	llm, router := newRouterFixture(func(o *RouterOptions) {
		o.DefaultChild = "Escalation"
	})
	llm.SetDelay(time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, tc := newTestTurn("help")

	_, err := router.Execute(ctx, tc, "help")

	assert.ErrorIs(t, err, context.Canceled)

	var routingErr *RoutingError
	assert.False(t, errors.As(err, &routingErr))
}

func TestRouterAgent_Execute_NoChildren(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	router := NewRouter("Coordinator", llm, nil)

	_, _, tc := newTestTurn("help")

	_, err := router.Execute(context.Background(), tc, "help")

	require.Error(t, err)

	var routingErr *RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, RoutingNoDefault, routingErr.Kind)
}

func TestRouterAgent_Execute_MisconfiguredDefaultChild(t *testing.T) {
	llm, router := newRouterFixture(func(o *RouterOptions) {
		o.DefaultChild = "Nonexistent"
	})
	llm.QueueClassification("Gardening")

	_, _, tc := newTestTurn("help")

	_, err := router.Execute(context.Background(), tc, "help")

	require.Error(t, err)

	var routingErr *RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, RoutingUnknownTarget, routingErr.Kind)
	assert.Equal(t, "Nonexistent", routingErr.Label)
}

func TestRouterAgent_Execute_ReclassifiesEveryTurn(t *testing.T) {
	llm, router := newRouterFixture()
	llm.QueueClassification("Billing")
	llm.QueueClassification("Order")

	_, _, tc1 := newTestTurn("my invoice is wrong")
	out1, err := router.Execute(context.Background(), tc1, "my invoice is wrong")
	require.NoError(t, err)
	assert.Equal(t, "Billing: my invoice is wrong", out1)

	_, _, tc2 := newTestTurn("where is my package?")
	out2, err := router.Execute(context.Background(), tc2, "where is my package?")
	require.NoError(t, err)
	assert.Equal(t, "Order: where is my package?", out2)

	assert.Equal(t, 2, llm.ClassifyCalls())
}
