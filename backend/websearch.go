package backend

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// WebResult is one web search hit.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearch is a canned web search client. Results are keyed by topic
// keyword; artificial latency and failure injection make it the lever for
// exercising degraded parallel research.
type WebSearch struct {
	mu      sync.Mutex
	results map[string][]WebResult
	delay   time.Duration
	err     error
}

// NewWebSearch constructs the client with its canned result sets.
func NewWebSearch() *WebSearch {
	return &WebSearch{
		results: map[string][]WebResult{
			"webhook": {
				{
					Title:   "Debugging webhook signature mismatches",
					URL:     "https://devforum.example.com/t/webhook-signature-mismatch/4821",
					Snippet: "Most signature failures come from a stale webhook secret. Regenerate it and update the verification code.",
				},
				{
					Title:   "Webhook delivery best practices",
					URL:     "https://blog.example.com/webhook-delivery-best-practices",
					Snippet: "Respond 200 OK within 30 seconds and process the payload asynchronously.",
				},
			},
			"password": {
				{
					Title:   "Password reset emails going to spam",
					URL:     "https://community.example.com/t/reset-email-spam/1193",
					Snippet: "Ask users to whitelist the sender and check the spam folder before retrying.",
				},
			},
			"500": {
				{
					Title:   "Intermittent 500s after deploy",
					URL:     "https://devforum.example.com/t/intermittent-500-after-deploy/7754",
					Snippet: "Oversized payloads and malformed JSON are the two most common causes of 500 responses.",
				},
				{
					Title:   "Status page: API incident archive",
					URL:     "https://status.example.com/history",
					Snippet: "Check the incident archive before debugging; the 500s may not be yours.",
				},
			},
			"api": {
				{
					Title:   "401 vs 403: API auth failures explained",
					URL:     "https://blog.example.com/api-auth-failures",
					Snippet: "A 401 means the key is wrong or inactive; verify the environment (test vs production) first.",
				},
			},
			"billing": {
				{
					Title:   "Understanding prorated subscription charges",
					URL:     "https://help.example.com/billing/proration",
					Snippet: "Mid-cycle plan changes produce prorated line items on the next invoice.",
				},
			},
		},
	}
}

// SetDelay adds artificial latency to every search.
func (w *WebSearch) SetDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.delay = d
}

// Fail makes every search return err until reset with nil.
func (w *WebSearch) Fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.err = err
}

// Search returns the canned hits whose topic keyword appears in the query.
// The configured delay is applied first and honors ctx cancellation.
func (w *WebSearch) Search(ctx context.Context, query string) ([]WebResult, error) {
	w.mu.Lock()
	delay := w.delay
	err := w.err
	w.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)

	topics := make([]string, 0, len(w.results))
	for topic := range w.results {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	var hits []WebResult

	for _, topic := range topics {
		if strings.Contains(queryLower, topic) {
			hits = append(hits, w.results[topic]...)
		}
	}

	return hits, nil
}
