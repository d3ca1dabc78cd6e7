package helpdesk

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh/backend"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/tool"
)

// Scratch keys the tools maintain across turns. The mesh's retention policy
// keeps them so follow-up questions ("what's the status of my last ticket?")
// resolve without the user repeating identifiers.
const (
	// ScratchLastTicketID holds the ID of the most recently created ticket.
	ScratchLastTicketID = "lastTicketId"
	// ScratchLastOrderID holds the ID of the most recently looked-up order.
	ScratchLastOrderID = "lastOrderId"
)

// newTools builds the full help desk tool set against the given backends.
func newTools(b *Backends) []tool.Tool {
	return []tool.Tool{
		newUserContextTool(b.CRM),
		newOrderStatusTool(b.Orders),
		newKBSearchTool(b.KB),
		newFAQTool(b.KB),
		newWebSearchTool(b.WebSearch),
		newSimilarTicketsTool(b.Tickets),
		newSolutionStepsTool(b.Solutions),
		newCreateTicketTool(b.Tickets),
		newAssignTeamTool(b.Tickets),
		newTicketStatusTool(b.Tickets),
	}
}

// newUserContextTool exposes CRM account lookups. Missing users come back as
// a structured payload rather than an error so the model can still respond.
func newUserContextTool(crm *backend.CRM) tool.Tool {
	return tool.NewFunctionTool(
		"get_user_context",
		"Retrieve the user's account details, plan and recent support history.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{
					"type":        "string",
					"description": "User identifier. Defaults to the session's user when omitted.",
				},
			},
		},
		func(_ context.Context, toolCtx *core.ToolContext, args map[string]any) (any, error) {
			userID, _ := args["user_id"].(string)
			if userID == "" {
				userID = toolCtx.Profile().StringValue("user_id")
			}

			user, err := crm.Lookup(userID)
			if err != nil {
				return map[string]any{
					"status":        "error",
					"error_message": fmt.Sprintf("user %q not found in the system", userID),
					"suggestion":    "Verify the user ID or proceed without account context.",
				}, nil
			}

			return map[string]any{
				"status": "success",
				"user": map[string]any{
					"name":           user.Name,
					"email":          user.Email,
					"plan":           user.Plan,
					"account_status": user.AccountStatus,
				},
				"support_context": map[string]any{
					"recent_tickets": user.RecentTickets,
					"ticket_count":   len(user.RecentTickets),
				},
			}, nil
		},
	)
}

// newOrderStatusTool resolves an order's shipping status and remembers the
// order ID in scratch for follow-up turns.
func newOrderStatusTool(orders *backend.OrderStore) tool.Tool {
	return tool.NewFunctionTool(
		"get_order_status",
		"Look up the shipping status of an order by its ID.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"order_id": map[string]any{
					"type":        "string",
					"description": "The order number, e.g. '12345'.",
				},
			},
			"required": []string{"order_id"},
		},
		func(_ context.Context, toolCtx *core.ToolContext, args map[string]any) (any, error) {
			orderID, _ := args["order_id"].(string)

			order, err := orders.Lookup(orderID)
			if err != nil {
				return map[string]any{
					"status":  "not_found",
					"message": fmt.Sprintf("Order ID %s not found.", orderID),
				}, nil
			}

			toolCtx.SetScratch(ScratchLastOrderID, order.ID)

			return map[string]any{
				"status":   "success",
				"order_id": order.ID,
				"item":     order.Item,
				"shipping": order.Status,
				"message":  fmt.Sprintf("Order %s (%s): Status - %s.", order.ID, order.Item, order.Status),
			}, nil
		},
	)
}

// newKBSearchTool exposes knowledge base article search.
func newKBSearchTool(kb *backend.KnowledgeBase) tool.Tool {
	return tool.NewFunctionTool(
		"search_knowledge_base",
		"Search the support knowledge base for articles matching a query.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query, e.g. 'webhook signature error'.",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of articles to return (default 3).",
				},
			},
			"required": []string{"query"},
		},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)

			articles := kb.Search(query, intArg(args, "max_results", 3))

			payload := make([]map[string]any, 0, len(articles))
			for _, a := range articles {
				payload = append(payload, map[string]any{
					"id":              a.ID,
					"title":           a.Title,
					"category":        a.Category,
					"content":         a.Content,
					"relevance_score": a.Relevance,
				})
			}

			return map[string]any{
				"status":      "success",
				"articles":    payload,
				"total_found": len(payload),
			}, nil
		},
	)
}

// newFAQTool answers common questions from the FAQ table.
func newFAQTool(kb *backend.KnowledgeBase) tool.Tool {
	return tool.NewFunctionTool(
		"get_faq_answer",
		"Get a quick answer from the FAQ for a common question.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to look up, e.g. 'how to reset password'.",
				},
			},
			"required": []string{"question"},
		},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			question, _ := args["question"].(string)

			topic, answer, ok := kb.QuickAnswer(question)
			if !ok {
				return map[string]any{
					"status":  "not_found",
					"message": "No FAQ entry found for this question. Try searching the knowledge base for more detailed articles.",
				}, nil
			}

			return map[string]any{
				"status": "found",
				"topic":  topic,
				"answer": answer,
			}, nil
		},
	)
}

// newWebSearchTool exposes the web search client. Backend failures propagate
// as errors so the caller sees an UPSTREAM tool failure, and timeouts honor
// the turn's deadline.
func newWebSearchTool(ws *backend.WebSearch) tool.Tool {
	return tool.NewFunctionTool(
		"web_search",
		"Search the web for reports and fixes matching the issue description.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search terms describing the issue.",
				},
			},
			"required": []string{"query"},
		},
		func(ctx context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)

			hits, err := ws.Search(ctx, query)
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"status":      "success",
				"results":     hits,
				"total_found": len(hits),
			}, nil
		},
	)
}

// newSimilarTicketsTool searches resolved tickets for matching past issues.
func newSimilarTicketsTool(ts *backend.TicketSystem) tool.Tool {
	return tool.NewFunctionTool(
		"search_similar_tickets",
		"Find previously resolved support tickets similar to the current issue.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{
					"type":        "string",
					"description": "Description of the current issue.",
				},
				"category": map[string]any{
					"type":        "string",
					"description": "Optional category filter, e.g. 'billing'.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results (default 3).",
				},
			},
			"required": []string{"description"},
		},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			description, _ := args["description"].(string)
			category, _ := args["category"].(string)

			similar := ts.SearchSimilar(description, category, intArg(args, "limit", 3))

			message := "No similar resolved tickets found. This may be a new issue type."
			if len(similar) > 0 {
				message = fmt.Sprintf("Found %d similar resolved ticket(s) that may help", len(similar))
			}

			return map[string]any{
				"status":          "success",
				"similar_tickets": similar,
				"total_found":     len(similar),
				"message":         message,
			}, nil
		},
	)
}

// newSolutionStepsTool generates a troubleshooting checklist for an error type.
func newSolutionStepsTool(guide *backend.SolutionGuide) tool.Tool {
	return tool.NewFunctionTool(
		"generate_solution_steps",
		"Generate a step-by-step troubleshooting checklist for an identified error type.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"error_type": map[string]any{
					"type":        "string",
					"description": "The identified error type, e.g. '500_error' or 'webhook_failure'.",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "Optional context about when the error occurs.",
				},
			},
			"required": []string{"error_type"},
		},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			errorType, _ := args["error_type"].(string)
			errCtx, _ := args["context"].(string)

			solution := guide.GenerateSteps(errorType, errCtx)

			return map[string]any{
				"status":     "success",
				"error_type": solution.ErrorType,
				"steps":      solution.Steps,
				"summary":    solution.Summary,
			}, nil
		},
	)
}

// newCreateTicketTool opens a support ticket and records its ID in scratch so
// later turns can reference "my last ticket".
func newCreateTicketTool(ts *backend.TicketSystem) tool.Tool {
	return tool.NewFunctionTool(
		"create_ticket",
		"Create a support ticket for human agent review.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{
					"type":        "string",
					"description": "Brief summary of the issue.",
				},
				"category": map[string]any{
					"type":        "string",
					"description": "Issue category, e.g. 'integration', 'billing', 'bug_report'.",
				},
				"priority": map[string]any{
					"type": "string",
					"enum": []any{"low", "medium", "high", "critical"},
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Detailed description including context and error messages.",
				},
				"attempted_solutions": map[string]any{
					"type":        "array",
					"description": "Solutions already tried.",
					"items":       map[string]any{"type": "string"},
				},
				"user_id": map[string]any{
					"type":        "string",
					"description": "User identifier. Defaults to the session's user when omitted.",
				},
			},
			"required": []string{"summary", "category", "priority", "description"},
		},
		func(_ context.Context, toolCtx *core.ToolContext, args map[string]any) (any, error) {
			userID, _ := args["user_id"].(string)
			if userID == "" {
				userID = toolCtx.Profile().StringValue("user_id")
			}

			summary, _ := args["summary"].(string)
			category, _ := args["category"].(string)
			priority, _ := args["priority"].(string)
			description, _ := args["description"].(string)

			receipt := ts.Create(backend.TicketRequest{
				Summary:            summary,
				Category:           category,
				Priority:           priority,
				Description:        description,
				AttemptedSolutions: stringSliceArg(args, "attempted_solutions"),
				UserID:             userID,
			})

			toolCtx.SetScratch(ScratchLastTicketID, receipt.TicketID)

			return map[string]any{
				"status":             "success",
				"ticket_id":          receipt.TicketID,
				"assigned_team":      receipt.AssignedTeam,
				"priority":           receipt.Priority,
				"estimated_response": fmt.Sprintf("%d hour(s)", receipt.ResponseHours),
				"message": fmt.Sprintf(
					"Ticket %s created successfully and assigned to %s. Expected response within %d hour(s).",
					receipt.TicketID, receipt.AssignedTeam, receipt.ResponseHours,
				),
			}, nil
		},
	)
}

// newAssignTeamTool resolves team ownership and SLA without opening a ticket.
func newAssignTeamTool(ts *backend.TicketSystem) tool.Tool {
	return tool.NewFunctionTool(
		"assign_to_team",
		"Determine which team should handle an issue and its response SLA.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": map[string]any{
					"type":        "string",
					"description": "Issue category, e.g. 'integration', 'billing'.",
				},
				"priority": map[string]any{
					"type": "string",
					"enum": []any{"low", "medium", "high", "critical"},
				},
			},
			"required": []string{"category", "priority"},
		},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			category, _ := args["category"].(string)
			priority, _ := args["priority"].(string)

			assignment := ts.AssignTeam(category, priority)

			payload := map[string]any{
				"status":          "success",
				"team":            assignment.Team,
				"response_sla":    fmt.Sprintf("%d hours", assignment.ResponseHours),
				"escalation_path": assignment.EscalationPath,
			}
			if assignment.Urgent {
				payload["urgency_note"] = fmt.Sprintf("This is a %s priority issue - team will be notified immediately", priority)
			}

			return payload, nil
		},
	)
}

// newTicketStatusTool looks up a ticket's current state.
func newTicketStatusTool(ts *backend.TicketSystem) tool.Tool {
	return tool.NewFunctionTool(
		"get_ticket_status",
		"Get the current status of a support ticket by its ID.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ticket_id": map[string]any{
					"type":        "string",
					"description": "The ticket ID, e.g. 'TICKET-789'.",
				},
			},
			"required": []string{"ticket_id"},
		},
		func(_ context.Context, _ *core.ToolContext, args map[string]any) (any, error) {
			ticketID, _ := args["ticket_id"].(string)

			ticket, err := ts.Status(ticketID)
			if err != nil {
				return map[string]any{
					"status":        "error",
					"error_message": fmt.Sprintf("Ticket %q not found", ticketID),
				}, nil
			}

			payload := map[string]any{
				"id":            ticket.ID,
				"title":         ticket.Title,
				"status":        ticket.Status,
				"priority":      ticket.Priority,
				"assigned_team": ticket.AssignedTeam,
				"created_at":    ticket.CreatedAt.Format(time.RFC3339),
			}
			if ticket.Status == "resolved" {
				payload["resolved_at"] = ticket.ResolvedAt.Format(time.RFC3339)
				payload["resolution"] = ticket.Resolution
			}

			return map[string]any{
				"status": "success",
				"ticket": payload,
			}, nil
		},
	)
}

// intArg reads an integer argument, tolerating the float64 values JSON
// decoding produces.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// stringSliceArg reads a string array argument.
func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
