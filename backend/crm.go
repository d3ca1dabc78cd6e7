package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// ErrUserNotFound is returned when a user ID has no CRM record.
var ErrUserNotFound = errors.New("user not found")

// DefaultUserID is the account used when no user ID is supplied.
const DefaultUserID = "demo_user"

// User is one CRM account record.
type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Plan          string   `json:"plan"`
	AccountStatus string   `json:"account_status"`
	CreatedAt     string   `json:"created_at"`
	RecentTickets []string `json:"recent_tickets"`
	APIKeyCount   int      `json:"api_key_count"`
	WebhookCount  int      `json:"webhook_count"`
	LastLogin     string   `json:"last_login"`
}

// CRM is a fixture-backed customer database. It implements
// core.ProfileLoader so session bootstrap can pull user profiles from it.
type CRM struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewCRM constructs the CRM with its fixture accounts.
func NewCRM() *CRM {
	return &CRM{
		users: map[string]User{
			"user_123": {
				ID:            "user_123",
				Name:          "John Smith",
				Email:         "john.smith@example.com",
				Plan:          "Pro",
				AccountStatus: "active",
				CreatedAt:     "2024-01-15",
				RecentTickets: []string{"TICKET-456", "TICKET-234"},
				APIKeyCount:   2,
				WebhookCount:  3,
				LastLogin:     "2025-01-10",
			},
			"user_456": {
				ID:            "user_456",
				Name:          "Jane Doe",
				Email:         "jane.doe@company.com",
				Plan:          "Enterprise",
				AccountStatus: "active",
				CreatedAt:     "2023-06-20",
				RecentTickets: []string{},
				APIKeyCount:   5,
				WebhookCount:  10,
				LastLogin:     "2025-01-12",
			},
			"demo_user": {
				ID:            "demo_user",
				Name:          "Jack Sparrow",
				Email:         "demo@example.com",
				Plan:          "Standard",
				AccountStatus: "active",
				CreatedAt:     "2024-11-01",
				RecentTickets: []string{"TICKET-789"},
				APIKeyCount:   1,
				WebhookCount:  1,
				LastLogin:     "2025-01-12",
			},
		},
	}
}

// Lookup returns the user record for the given ID. An empty ID resolves to
// the demo account.
func (c *CRM) Lookup(userID string) (User, error) {
	if userID == "" {
		userID = DefaultUserID
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	user, ok := c.users[userID]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	return user, nil
}

// LoadProfile implements core.ProfileLoader.
func (c *CRM) LoadProfile(_ context.Context, userID string) (core.UserProfile, error) {
	user, err := c.Lookup(userID)
	if err != nil {
		return nil, err
	}

	return core.UserProfile{
		"user_id":        user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"plan":           user.Plan,
		"account_status": user.AccountStatus,
		"recent_tickets": append([]string(nil), user.RecentTickets...),
	}, nil
}
