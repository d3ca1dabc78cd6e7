package backend

import (
	"sort"
	"strings"
)

// Article is one knowledge base entry.
type Article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
}

// ScoredArticle pairs an article with its search relevance.
type ScoredArticle struct {
	Article
	Relevance int `json:"relevance_score"`
}

// KnowledgeBase serves support articles and FAQ quick answers. The corpus
// is immutable after construction, so reads need no locking.
type KnowledgeBase struct {
	articles []Article
	faq      map[string]string
}

// NewKnowledgeBase constructs the knowledge base with its fixture corpus.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		articles: []Article{
			{
				ID:       "KB001",
				Title:    "How to Reset Your Password",
				Category: "password_reset",
				Content: "To reset your password:\n" +
					"1. Go to the login page and click 'Forgot Password'\n" +
					"2. Enter your email address\n" +
					"3. Check your inbox for a reset link (check spam folder too)\n" +
					"4. Click the link and create a new password\n" +
					"5. Password must be at least 8 characters with one number and one special character\n\n" +
					"If you don't receive the email within 5 minutes, contact support.",
				Keywords: []string{"password", "reset", "forgot", "login", "access"},
			},
			{
				ID:       "KB002",
				Title:    "Webhook Configuration Guide",
				Category: "integration",
				Content: "Setting up webhooks:\n" +
					"1. Navigate to Settings > Integrations > Webhooks\n" +
					"2. Click 'Add Webhook Endpoint'\n" +
					"3. Enter your endpoint URL (must be HTTPS)\n" +
					"4. Select the events you want to receive\n" +
					"5. Copy the webhook secret for signature verification\n\n" +
					"Common issues:\n" +
					"- Signature mismatch: Regenerate your webhook secret and update your code\n" +
					"- Events not received: Check your endpoint returns 200 OK within 30 seconds\n" +
					"- SSL errors: Ensure your certificate is valid and not self-signed",
				Keywords: []string{"webhook", "integration", "api", "events", "endpoint", "signature"},
			},
			{
				ID:       "KB003",
				Title:    "API Authentication Guide",
				Category: "integration",
				Content: "API Authentication:\n" +
					"1. Generate an API key from Settings > API Keys\n" +
					"2. Include the key in the Authorization header: 'Bearer YOUR_API_KEY'\n" +
					"3. API keys are environment-specific (test/production)\n\n" +
					"Rate limits:\n" +
					"- Standard plan: 100 requests/minute\n" +
					"- Pro plan: 1000 requests/minute\n" +
					"- Enterprise: Custom limits\n\n" +
					"If you receive 401 errors, verify your API key is correct and active.",
				Keywords: []string{"api", "authentication", "auth", "key", "401", "bearer", "token"},
			},
			{
				ID:       "KB004",
				Title:    "Billing and Subscription FAQ",
				Category: "billing",
				Content: "Billing Information:\n" +
					"- Invoices are generated on the 1st of each month\n" +
					"- Payment methods: Credit card, ACH, Wire transfer (Enterprise only)\n" +
					"- Upgrade/downgrade takes effect immediately, prorated billing applies\n\n" +
					"Common questions:\n" +
					"- View invoices: Settings > Billing > Invoice History\n" +
					"- Update payment method: Settings > Billing > Payment Methods\n" +
					"- Cancel subscription: Settings > Billing > Manage Plan > Cancel",
				Keywords: []string{"billing", "invoice", "payment", "subscription", "cancel", "upgrade"},
			},
			{
				ID:       "KB005",
				Title:    "Troubleshooting 500 Errors",
				Category: "bug_report",
				Content: "If you're experiencing 500 Internal Server Errors:\n\n" +
					"1. Check our status page for ongoing incidents\n" +
					"2. Retry the request after a few seconds (may be temporary)\n" +
					"3. If persistent, note:\n" +
					"   - The exact endpoint being called\n" +
					"   - Request body/parameters\n" +
					"   - Time of occurrence\n" +
					"   - Any error message returned\n\n" +
					"Common causes:\n" +
					"- Large payload sizes (max 10MB)\n" +
					"- Invalid JSON format\n" +
					"- Missing required fields\n" +
					"- Rate limit exceeded (returns 429, not 500)\n\n" +
					"If the issue persists, contact support with the details above.",
				Keywords: []string{"500", "error", "server", "bug", "crash", "internal"},
			},
		},
		faq: map[string]string{
			"password reset":      "You can reset your password at the login page by clicking 'Forgot Password' and following the email instructions.",
			"api rate limit":      "Rate limits are: Standard (100/min), Pro (1000/min), Enterprise (custom). Check headers for X-RateLimit-Remaining.",
			"webhook timeout":     "Webhooks timeout after 30 seconds. Ensure your endpoint responds with 200 OK quickly. Process heavy operations asynchronously.",
			"billing cycle":       "Billing occurs on the 1st of each month. Changes are prorated.",
			"cancel subscription": "Go to Settings > Billing > Manage Plan > Cancel. You'll retain access until the end of your billing period.",
			"api key":             "Generate API keys at Settings > API Keys. Keep them secure and never share in public repositories.",
			"supported browsers":  "We support the latest versions of Chrome, Firefox, Safari, and Edge.",
			"data export":         "Export your data from Settings > Account > Export Data. Processing may take up to 24 hours for large accounts.",
		},
	}
}

// Search scores every article against the query and returns the best
// matches, highest relevance first. Scoring weights: full query in the
// title 10, keyword hit 5, full query in the content 3, plus per-word
// title/content hits for words longer than three characters.
func (kb *KnowledgeBase) Search(query string, maxResults int) []ScoredArticle {
	if maxResults <= 0 {
		maxResults = 3
	}

	queryLower := strings.ToLower(query)
	queryWords := fields(queryLower)

	var scored []ScoredArticle

	for _, article := range kb.articles {
		titleLower := strings.ToLower(article.Title)
		contentLower := strings.ToLower(article.Content)

		score := 0

		if strings.Contains(titleLower, queryLower) {
			score += 10
		}

		for _, keyword := range article.Keywords {
			if strings.Contains(queryLower, keyword) || queryWords[keyword] {
				score += 5
			}
		}

		if strings.Contains(contentLower, queryLower) {
			score += 3
		}

		for word := range queryWords {
			if len(word) <= 3 {
				continue
			}

			if strings.Contains(contentLower, word) {
				score++
			}

			if strings.Contains(titleLower, word) {
				score += 2
			}
		}

		if score > 0 {
			scored = append(scored, ScoredArticle{Article: article, Relevance: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Relevance > scored[j].Relevance })

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	return scored
}

// QuickAnswer resolves a question against the FAQ table: first by topic
// substring, then by best word overlap.
func (kb *KnowledgeBase) QuickAnswer(question string) (topic, answer string, ok bool) {
	questionLower := strings.ToLower(question)

	// Iterate in stable order so ties resolve deterministically.
	topics := make([]string, 0, len(kb.faq))
	for t := range kb.faq {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	for _, t := range topics {
		if strings.Contains(questionLower, t) {
			return t, kb.faq[t], true
		}
	}

	questionWords := fields(questionLower)

	bestScore := 0
	bestTopic := ""

	for _, t := range topics {
		overlap := 0
		for _, word := range strings.Fields(t) {
			if questionWords[word] {
				overlap++
			}
		}

		if overlap > bestScore {
			bestScore = overlap
			bestTopic = t
		}
	}

	if bestScore >= 1 {
		return bestTopic, kb.faq[bestTopic], true
	}

	return "", "", false
}

// fields splits a lowercased string into a word set.
func fields(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		words[w] = true
	}

	return words
}
