package backend

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrTicketNotFound is returned when a ticket ID has no record.
var ErrTicketNotFound = errors.New("ticket not found")

// Ticket is one support ticket record.
type Ticket struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Priority           string    `json:"priority"`
	Status             string    `json:"status"`
	AssignedTeam       string    `json:"assigned_team"`
	CreatedAt          time.Time `json:"created_at"`
	ResolvedAt         time.Time `json:"resolved_at,omitempty"`
	Description        string    `json:"description"`
	Resolution         string    `json:"resolution,omitempty"`
	AttemptedSolutions []string  `json:"attempted_solutions,omitempty"`
	UserID             string    `json:"user_id,omitempty"`
}

// TicketRequest carries the fields needed to open a ticket.
type TicketRequest struct {
	Summary            string
	Category           string
	Priority           string
	Description        string
	AttemptedSolutions []string
	UserID             string
}

// TicketReceipt summarizes a freshly created ticket.
type TicketReceipt struct {
	TicketID      string `json:"ticket_id"`
	AssignedTeam  string `json:"assigned_team"`
	Priority      string `json:"priority"`
	ResponseHours int    `json:"response_hours"`
}

// Assignment is the routing decision for a category/priority pair.
type Assignment struct {
	Team           string `json:"team"`
	ResponseHours  int    `json:"response_hours"`
	EscalationPath string `json:"escalation_path"`
	Urgent         bool   `json:"urgent"`
}

// SimilarTicket is a resolved ticket matched against an issue description.
type SimilarTicket struct {
	TicketID    string `json:"ticket_id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Resolution  string `json:"resolution"`
	Relevance   int    `json:"relevance_score"`
}

// teamAssignments routes issue categories to owning teams.
var teamAssignments = map[string]string{
	"password_reset":   "account_team",
	"billing":          "finance_team",
	"order":            "order_fullfillment_team",
	"bug_report":       "engineering_team",
	"feature_question": "product_team",
	"performance":      "infrastructure_team",
	"security":         "security_team",
	"unknown":          "general_support",
}

// responseSLAs maps priority to first-response hours.
var responseSLAs = map[string]int{
	"critical": 1,
	"high":     4,
	"medium":   8,
	"low":      24,
}

// escalationPaths names the next level up for each team.
var escalationPaths = map[string]string{
	"account_team":        "customer_success_manager",
	"finance_team":        "finance_director",
	"engineering_team":    "engineering_lead",
	"product_team":        "product_manager",
	"integration_team":    "technical_architect",
	"infrastructure_team": "sre_lead",
	"security_team":       "security_officer",
	"general_support":     "support_manager",
}

// TicketSystem tracks support tickets in memory, seeded with a set of
// resolved fixtures for similarity search.
type TicketSystem struct {
	mu      sync.Mutex
	tickets map[string]Ticket
	newID   func() string
}

// TicketSystemOptions configure a TicketSystem.
type TicketSystemOptions struct {
	// NewID overrides ticket ID generation, for deterministic tests.
	NewID func() string
}

// NewTicketSystem constructs the system with its resolved fixture tickets.
func NewTicketSystem(optFns ...func(o *TicketSystemOptions)) *TicketSystem {
	opts := TicketSystemOptions{
		NewID: func() string { return fmt.Sprintf("TICKET-%d", 1000+rand.IntN(9000)) },
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	ts := &TicketSystem{
		tickets: make(map[string]Ticket),
		newID:   opts.NewID,
	}

	for _, t := range fixtureTickets() {
		ts.tickets[t.ID] = t
	}

	return ts
}

func fixtureTickets() []Ticket {
	return []Ticket{
		{
			ID:           "TICKET-789",
			Title:        "Cannot connect to API",
			Category:     "integration",
			Priority:     "high",
			Status:       "resolved",
			AssignedTeam: "integration_team",
			CreatedAt:    time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC),
			ResolvedAt:   time.Date(2024, 12, 20, 14, 30, 0, 0, time.UTC),
			Description:  "User unable to authenticate with API using provided key",
			Resolution:   "API key was for test environment, provided production key",
		},
		{
			ID:           "TICKET-456",
			Title:        "Webhook events not received",
			Category:     "integration",
			Priority:     "high",
			Status:       "resolved",
			AssignedTeam: "integration_team",
			CreatedAt:    time.Date(2024, 11, 15, 8, 0, 0, 0, time.UTC),
			ResolvedAt:   time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC),
			Description:  "Customer's webhook endpoint stopped receiving events after API v2 update",
			Resolution:   "Webhook secret was regenerated during API update. Customer needed to update their verification code with new secret.",
		},
		{
			ID:           "TICKET-234",
			Title:        "Billing discrepancy",
			Category:     "billing",
			Priority:     "medium",
			Status:       "resolved",
			AssignedTeam: "finance_team",
			CreatedAt:    time.Date(2024, 10, 5, 14, 0, 0, 0, time.UTC),
			ResolvedAt:   time.Date(2024, 10, 6, 9, 0, 0, 0, time.UTC),
			Description:  "Customer charged twice for the same month",
			Resolution:   "Duplicate charge refunded, billing system bug fixed",
		},
		{
			ID:           "TICKET-567",
			Title:        "Performance degradation on dashboard",
			Category:     "performance",
			Priority:     "medium",
			Status:       "resolved",
			AssignedTeam: "infrastructure_team",
			CreatedAt:    time.Date(2024, 11, 20, 16, 0, 0, 0, time.UTC),
			ResolvedAt:   time.Date(2024, 11, 21, 10, 0, 0, 0, time.UTC),
			Description:  "Dashboard loading very slowly, 10+ seconds per page",
			Resolution:   "Database index added, caching layer implemented",
		},
	}
}

// Create opens a new ticket and returns its receipt. IDs are retried until
// unique.
func (ts *TicketSystem) Create(req TicketRequest) TicketReceipt {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	id := ts.newID()
	for _, taken := ts.tickets[id]; taken; _, taken = ts.tickets[id] {
		id = ts.newID()
	}

	team := assignTeam(req.Category)
	hours := responseHours(req.Priority)

	ts.tickets[id] = Ticket{
		ID:                 id,
		Title:              req.Summary,
		Category:           req.Category,
		Priority:           req.Priority,
		Status:             "open",
		AssignedTeam:       team,
		CreatedAt:          time.Now(),
		Description:        req.Description,
		AttemptedSolutions: append([]string(nil), req.AttemptedSolutions...),
		UserID:             req.UserID,
	}

	return TicketReceipt{
		TicketID:      id,
		AssignedTeam:  team,
		Priority:      req.Priority,
		ResponseHours: hours,
	}
}

// AssignTeam resolves the owning team and SLA for a category/priority pair
// without opening a ticket.
func (ts *TicketSystem) AssignTeam(category, priority string) Assignment {
	team := assignTeam(category)

	return Assignment{
		Team:           team,
		ResponseHours:  responseHours(priority),
		EscalationPath: escalationPath(team),
		Urgent:         priority == "critical" || priority == "high",
	}
}

// SearchSimilar scores resolved tickets against an issue description.
// Per-word scoring: title hit 3, description hit 1 (words longer than
// three characters); matching the category filter adds 2.
func (ts *TicketSystem) SearchSimilar(description, category string, limit int) []SimilarTicket {
	if limit <= 0 {
		limit = 3
	}

	words := fields(strings.ToLower(description))

	ts.mu.Lock()
	defer ts.mu.Unlock()

	var scored []SimilarTicket

	for _, ticket := range ts.tickets {
		if ticket.Status != "resolved" {
			continue
		}

		if category != "" && ticket.Category != category {
			continue
		}

		titleLower := strings.ToLower(ticket.Title)
		descLower := strings.ToLower(ticket.Description)

		score := 0

		for word := range words {
			if len(word) <= 3 {
				continue
			}

			if strings.Contains(titleLower, word) {
				score += 3
			}

			if strings.Contains(descLower, word) {
				score++
			}
		}

		if category != "" && ticket.Category == category {
			score += 2
		}

		if score > 0 {
			resolution := ticket.Resolution
			if resolution == "" {
				resolution = "No resolution recorded"
			}

			scored = append(scored, SimilarTicket{
				TicketID:    ticket.ID,
				Title:       ticket.Title,
				Category:    ticket.Category,
				Description: ticket.Description,
				Resolution:  resolution,
				Relevance:   score,
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Relevance != scored[j].Relevance {
			return scored[i].Relevance > scored[j].Relevance
		}

		return scored[i].TicketID < scored[j].TicketID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored
}

// Status returns the ticket with the given ID.
func (ts *TicketSystem) Status(ticketID string) (Ticket, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ticket, ok := ts.tickets[ticketID]
	if !ok {
		return Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
	}

	return ticket, nil
}

func assignTeam(category string) string {
	if team, ok := teamAssignments[category]; ok {
		return team
	}

	return "general_support"
}

func responseHours(priority string) int {
	if hours, ok := responseSLAs[priority]; ok {
		return hours
	}

	return 24
}

func escalationPath(team string) string {
	if path, ok := escalationPaths[team]; ok {
		return path
	}

	return "support_manager"
}
