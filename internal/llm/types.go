// Package llm provides LLM provider client implementations.
package llm

import "time"

// Provider names used for session routing and error attribution.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Message represents a chat message in provider-neutral form.
// Wire format conversion happens at provider boundaries
// (anthropic.go, openai.go).
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool-result messages
}

// ToolCall represents a tool invocation requested by the model.
// ID is the provider-assigned call id; tool results must echo it so
// the provider can correlate them.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResponse is the unified response from any provider.
type ChatResponse struct {
	Provider  string
	Model     string
	CreatedAt time.Time
	Message   Message
	Done      bool

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// StreamEvent represents a single event in a streaming response.
// Consumers switch on Kind to determine what data is available.
type StreamEvent struct {
	Kind StreamEventKind

	// Token is set for KindToken events.
	Token string

	// ToolName is set for KindToolUse events.
	ToolName string

	// Response is set for KindDone events (final summary).
	Response *ChatResponse
}

// StreamEventKind identifies the type of stream event.
type StreamEventKind int

const (
	// KindToken is an incremental text token from the model.
	KindToken StreamEventKind = iota

	// KindToolUse fires as soon as the model starts a tool invocation,
	// before arguments have finished streaming.
	KindToolUse

	// KindDone signals the stream is complete. Response carries final metadata.
	KindDone
)

// StreamCallback receives streaming events.
type StreamCallback func(event StreamEvent)
