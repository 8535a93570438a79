// Package llm provides the backend abstraction for llmgate: a uniform chat
// interface over two interchangeable providers (OpenRouter and Gemini),
// selected once at construction by Resolve.
package llm

import (
	"context"
	"sync"
	"time"
)

// Message represents a single chat message.
type Message struct {
	Role       string             `json:"role"` // user, assistant, tool, system
	Content    string             `json:"content"`
	ToolCalls  []ToolCallResponse `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"` // for tool result messages
}

// ToolDef represents a tool definition passed to the backend.
type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCallResponse represents a tool call returned by the backend.
type ToolCallResponse struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ChatRequest is the input payload forwarded verbatim to the backend.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the backend's response, forwarded verbatim to the caller.
type ChatResponse struct {
	Content      string             `json:"content"`
	ToolCalls    []ToolCallResponse `json:"tool_calls,omitempty"`
	StopReason   string             `json:"stop_reason"`
	InputTokens  int                `json:"input_tokens"`
	OutputTokens int                `json:"output_tokens"`
	Model        string             `json:"model"`
}

// Provider is the uniform call interface over the two backends.
// Implementations must not retry or reinterpret backend errors; the caller
// (normally a gate) sees exactly what the backend returned.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// --- Mock Provider for Testing ---

// MockProvider is a mock backend for testing. It records every dispatch with
// a timestamp, so tests can verify the spacing the gate enforces.
// Safe for concurrent use.
type MockProvider struct {
	mu          sync.Mutex
	response    string
	err         error
	delay       time.Duration
	callCount   int
	callTimes   []time.Time
	lastRequest *ChatRequest

	// ChatFunc overrides the canned behavior when set.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider creates a new mock backend.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetResponse sets the canned response content.
func (p *MockProvider) SetResponse(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = content
}

// SetError sets an error to return from every call.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// SetDelay makes each call take the given duration, simulating backend
// latency.
func (p *MockProvider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// CallCount returns the number of dispatches so far.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCount
}

// CallTimes returns the dispatch timestamps in order.
func (p *MockProvider) CallTimes() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Time, len(p.callTimes))
	copy(out, p.callTimes)
	return out
}

// LastRequest returns the most recent request, or nil.
func (p *MockProvider) LastRequest() *ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRequest
}

// Chat implements the Provider interface.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	p.callCount++
	p.callTimes = append(p.callTimes, time.Now())
	p.lastRequest = &req
	response := p.response
	err := p.err
	delay := p.delay
	fn := p.ChatFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Content:    response,
		StopReason: "end_turn",
	}, nil
}

var _ Provider = (*MockProvider)(nil)
