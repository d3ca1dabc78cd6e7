package backend

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRM_Lookup(t *testing.T) {
	crm := NewCRM()

	user, err := crm.Lookup("user_123")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", user.Name)
	assert.Equal(t, "Pro", user.Plan)
	assert.Equal(t, []string{"TICKET-456", "TICKET-234"}, user.RecentTickets)

	// Empty ID resolves to the demo account.
	user, err = crm.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "Jack Sparrow", user.Name)

	_, err = crm.Lookup("user_999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCRM_LoadProfile(t *testing.T) {
	crm := NewCRM()

	profile, err := crm.LoadProfile(context.Background(), "user_456")

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.Name())
	assert.Equal(t, "Enterprise", profile.Plan())
	assert.Equal(t, "user_456", profile.StringValue("user_id"))
}

func TestOrderStore_Lookup(t *testing.T) {
	orders := NewOrderStore()

	order, err := orders.Lookup("102")
	require.NoError(t, err)
	assert.Equal(t, "Pixel Buds Pro", order.Item)
	assert.Equal(t, "In Transit", order.Status)

	order, err = orders.Lookup("12345")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Keyboard", order.Item)
	assert.Equal(t, "Shipped", order.Status)

	_, err = orders.Lookup("999")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestKnowledgeBase_Search(t *testing.T) {
	kb := NewKnowledgeBase()

	results := kb.Search("webhook signature error", 3)

	require.NotEmpty(t, results)
	assert.Equal(t, "KB002", results[0].ID)
	assert.Positive(t, results[0].Relevance)

	// Highest relevance first.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Relevance, results[i].Relevance)
	}
}

func TestKnowledgeBase_Search_MaxResults(t *testing.T) {
	kb := NewKnowledgeBase()

	results := kb.Search("api", 1)

	assert.Len(t, results, 1)
}

func TestKnowledgeBase_Search_NoMatch(t *testing.T) {
	kb := NewKnowledgeBase()

	results := kb.Search("zzz qqq", 3)

	assert.Empty(t, results)
}

func TestKnowledgeBase_QuickAnswer(t *testing.T) {
	kb := NewKnowledgeBase()

	topic, answer, ok := kb.QuickAnswer("how do I do a password reset?")
	require.True(t, ok)
	assert.Equal(t, "password reset", topic)
	assert.Contains(t, answer, "Forgot Password")

	// Fuzzy match on word overlap.
	topic, _, ok = kb.QuickAnswer("what is the billing date")
	require.True(t, ok)
	assert.Equal(t, "billing cycle", topic)

	_, _, ok = kb.QuickAnswer("completely unrelated gibberish")
	assert.False(t, ok)
}

func TestTicketSystem_Create(t *testing.T) {
	ts := NewTicketSystem()

	receipt := ts.Create(TicketRequest{
		Summary:     "Webhook signature verification failing",
		Category:    "bug_report",
		Priority:    "high",
		Description: "Signatures stopped validating after rotating the secret",
		UserID:      "user_123",
	})

	assert.Regexp(t, regexp.MustCompile(`^TICKET-\d{4}$`), receipt.TicketID)
	assert.Equal(t, "engineering_team", receipt.AssignedTeam)
	assert.Equal(t, 4, receipt.ResponseHours)

	ticket, err := ts.Status(receipt.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "open", ticket.Status)
	assert.Equal(t, "Webhook signature verification failing", ticket.Title)
	assert.Equal(t, "user_123", ticket.UserID)
	assert.False(t, ticket.CreatedAt.IsZero())
}

func TestTicketSystem_Create_RetriesTakenIDs(t *testing.T) {
	ids := []string{"TICKET-789", "TICKET-789", "TICKET-1111"}
	n := 0

	ts := NewTicketSystem(func(o *TicketSystemOptions) {
		o.NewID = func() string {
			id := ids[n]
			n++
			return id
		}
	})

	receipt := ts.Create(TicketRequest{Summary: "x", Category: "billing", Priority: "low"})

	// TICKET-789 is a fixture; the generator must have been retried.
	assert.Equal(t, "TICKET-1111", receipt.TicketID)
}

func TestTicketSystem_AssignTeam(t *testing.T) {
	ts := NewTicketSystem()

	tests := []struct {
		category string
		priority string
		team     string
		hours    int
		urgent   bool
	}{
		{"billing", "medium", "finance_team", 8, false},
		{"password_reset", "low", "account_team", 24, false},
		{"security", "critical", "security_team", 1, true},
		{"bug_report", "high", "engineering_team", 4, true},
		{"made_up_category", "made_up_priority", "general_support", 24, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.category, tt.priority), func(t *testing.T) {
			got := ts.AssignTeam(tt.category, tt.priority)

			assert.Equal(t, tt.team, got.Team)
			assert.Equal(t, tt.hours, got.ResponseHours)
			assert.Equal(t, tt.urgent, got.Urgent)
			assert.NotEmpty(t, got.EscalationPath)
		})
	}
}

func TestTicketSystem_SearchSimilar(t *testing.T) {
	ts := NewTicketSystem()

	similar := ts.SearchSimilar("webhook events not arriving at endpoint", "", 3)

	require.NotEmpty(t, similar)
	assert.Equal(t, "TICKET-456", similar[0].TicketID)
	assert.Contains(t, similar[0].Resolution, "secret")
}

func TestTicketSystem_SearchSimilar_ResolvedOnly(t *testing.T) {
	ts := NewTicketSystem()

	receipt := ts.Create(TicketRequest{
		Summary:     "Webhook delivery failing again",
		Category:    "integration",
		Priority:    "high",
		Description: "webhook events lost",
	})

	similar := ts.SearchSimilar("webhook events lost", "", 10)

	for _, s := range similar {
		assert.NotEqual(t, receipt.TicketID, s.TicketID, "open tickets must not match")
	}
}

func TestTicketSystem_SearchSimilar_CategoryFilter(t *testing.T) {
	ts := NewTicketSystem()

	similar := ts.SearchSimilar("customer charged twice billing problem", "billing", 5)

	require.NotEmpty(t, similar)
	for _, s := range similar {
		assert.Equal(t, "billing", s.Category)
	}
}

func TestTicketSystem_Status_NotFound(t *testing.T) {
	ts := NewTicketSystem()

	_, err := ts.Status("TICKET-0000")

	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestWebSearch_Search(t *testing.T) {
	ws := NewWebSearch()

	hits, err := ws.Search(context.Background(), "my webhook signature is failing")

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Title, "webhook")
}

func TestWebSearch_Search_NoMatch(t *testing.T) {
	ws := NewWebSearch()

	hits, err := ws.Search(context.Background(), "completely unrelated")

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestWebSearch_FailureInjection(t *testing.T) {
	ws := NewWebSearch()
	ws.Fail(assert.AnError)

	_, err := ws.Search(context.Background(), "webhook")
	assert.ErrorIs(t, err, assert.AnError)

	ws.Fail(nil)

	_, err = ws.Search(context.Background(), "webhook")
	assert.NoError(t, err)
}

func TestWebSearch_DelayHonorsContext(t *testing.T) {
	ws := NewWebSearch()
	ws.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ws.Search(ctx, "webhook")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSolutionGuide_GenerateSteps(t *testing.T) {
	guide := NewSolutionGuide()

	solution := guide.GenerateSteps("500_error", "after deploy")

	assert.Equal(t, "500_error", solution.ErrorType)
	assert.Len(t, solution.Steps, 5)
	assert.Contains(t, solution.Steps[0], "error message")
}