package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON string of arguments
}

// ToolResult carries the outcome of a tool call back to the model on the
// next request. Content is the JSON-encoded result or error payload.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Message is one conversation entry in a completion request. Role follows
// the provider convention ("user", "assistant", "tool"); tool call requests
// ride on assistant messages and tool results on tool messages.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// UserMessage creates a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant-authored message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// AssistantToolCalls creates an assistant message carrying tool call requests.
func AssistantToolCalls(calls ...ToolCall) Message {
	return Message{Role: "assistant", ToolCalls: calls}
}

// ToolResultMessage creates a tool message carrying results for earlier calls.
func ToolResultMessage(results ...ToolResult) Message {
	return Message{Role: "tool", ToolResults: results}
}

// Request captures the normalized model input produced by leaf agents.
type Request struct {
	Instructions string           `json:"instructions"` // Instructions for the model
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the complete model output for one request. When the model
// requests tool calls instead of answering, ToolCalls is non-empty and
// FinishReason is "tool_calls".
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// ClassifyRequest asks the model to pick exactly one label for an input.
// Context carries conversational hints (recent history, retained scratch)
// the classifier may use; Labels is the closed set to choose from.
type ClassifyRequest struct {
	Instructions string   `json:"instructions"`
	Input        string   `json:"input"`
	Context      string   `json:"context,omitempty"`
	Labels       []string `json:"labels"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	// Complete produces a full reply (or tool call requests) for the request.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Classify returns the raw label text the model chose for the input.
	// Callers match it against their label set; the model does not validate.
	Classify(ctx context.Context, req *ClassifyRequest) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses can be keyed on the last user message, queued in FIFO order
// (queued responses win), or left to the deterministic fallback. Classify
// resolution order: scripted per-input label, queued label, then a
// case-insensitive scan of the input for a label substring.
type MockModel struct {
	mu sync.Mutex

	info            Info
	responses       map[string]string
	queue           []*Response
	classifications map[string]string
	labelQueue      []string

	completeErr error
	classifyErr error
	delay       time.Duration

	completeCalls int
	classifyCalls int

	lastComplete *Request
	lastClassify *ClassifyRequest
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses:       make(map[string]string),
		classifications: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[prompt] = response
}

// QueueResponse appends a scripted response consumed FIFO by Complete.
func (m *MockModel) QueueResponse(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, resp)
}

// QueueToolCall appends a scripted response that requests a single tool call.
func (m *MockModel) QueueToolCall(callID, name string, args map[string]any) {
	raw, _ := json.Marshal(args)

	m.QueueResponse(&Response{
		ToolCalls: []ToolCall{{
			ID:       callID,
			Type:     "function",
			Function: ToolCallFunction{Name: name, Arguments: raw},
		}},
		FinishReason: "tool_calls",
	})
}

// QueueText appends a scripted plain-text response.
func (m *MockModel) QueueText(text string) {
	m.QueueResponse(&Response{Text: text, FinishReason: "stop"})
}

// AddClassification registers a scripted label for an exact input.
func (m *MockModel) AddClassification(input, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.classifications[input] = label
}

// QueueClassification appends a scripted label consumed FIFO by Classify.
func (m *MockModel) QueueClassification(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.labelQueue = append(m.labelQueue, label)
}

// SetDelay makes every call sleep before answering, for timeout tests.
func (m *MockModel) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.delay = d
}

// FailCompletions makes Complete return err until reset with nil.
func (m *MockModel) FailCompletions(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completeErr = err
}

// FailClassifications makes Classify return err until reset with nil.
func (m *MockModel) FailClassifications(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.classifyErr = err
}

// CompleteCalls returns how many times Complete has been invoked.
func (m *MockModel) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.completeCalls
}

// ClassifyCalls returns how many times Classify has been invoked.
func (m *MockModel) ClassifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.classifyCalls
}

// LastCompleteRequest returns the most recent Complete request, or nil.
func (m *MockModel) LastCompleteRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastComplete
}

// LastClassifyRequest returns the most recent Classify request, or nil.
func (m *MockModel) LastClassifyRequest() *ClassifyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastClassify
}

func (m *MockModel) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.completeCalls++
	m.lastComplete = req
	delay := m.delay
	failErr := m.completeErr

	var scripted *Response
	if len(m.queue) > 0 {
		scripted = m.queue[0]
		m.queue = m.queue[1:]
	}
	m.mu.Unlock()

	if err := m.wait(ctx, delay); err != nil {
		return nil, err
	}

	if failErr != nil {
		return nil, failErr
	}

	if scripted != nil {
		return scripted, nil
	}

	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}

	m.mu.Lock()
	canned, ok := m.responses[lastUser]
	m.mu.Unlock()

	if !ok {
		canned = fmt.Sprintf("Mock response to: %s", lastUser)
	}

	return &Response{Text: canned, FinishReason: "stop"}, nil
}

// Classify implements Model.
func (m *MockModel) Classify(ctx context.Context, req *ClassifyRequest) (string, error) {
	m.mu.Lock()
	m.classifyCalls++
	m.lastClassify = req
	delay := m.delay
	failErr := m.classifyErr

	label, scripted := m.classifications[req.Input]
	if !scripted && len(m.labelQueue) > 0 {
		label = m.labelQueue[0]
		m.labelQueue = m.labelQueue[1:]
		scripted = true
	}
	m.mu.Unlock()

	if err := m.wait(ctx, delay); err != nil {
		return "", err
	}

	if failErr != nil {
		return "", failErr
	}

	if scripted {
		return label, nil
	}

	lower := strings.ToLower(req.Input)
	for _, l := range req.Labels {
		if strings.Contains(lower, strings.ToLower(l)) {
			return l, nil
		}
	}

	if len(req.Labels) > 0 {
		return req.Labels[0], nil
	}

	return "", fmt.Errorf("no labels provided")
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
