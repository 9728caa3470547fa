// Package events provides a publish/subscribe event bus for
// conversation observability. Events flow from components (agent loop,
// websocket gateway) to subscribers (the analytics collector). The bus
// is nil-safe: calling Publish on a nil *Bus is a no-op, so components
// do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceAgent identifies events from the agent loop.
	SourceAgent = "agent"
	// SourceGateway identifies events from the websocket gateway.
	SourceGateway = "gateway"
)

// Kind constants describe the type of event within a source.
const (
	// KindConversationStarted signals a websocket client connected.
	// Data: session_id.
	KindConversationStarted = "conversation_started"
	// KindMessageReceived signals an inbound customer message.
	// Data: session_id, message_len.
	KindMessageReceived = "message_received"
	// KindUserIdentified signals the customer identified themselves.
	// Data: session_id, email, history_reset.
	KindUserIdentified = "user_identified"
	// KindLLMCall signals completion of a provider call.
	// Data: session_id, provider, model, turn, input_tokens,
	// output_tokens, tool_calls.
	KindLLMCall = "llm_call"
	// KindToolCall signals the start of a tool execution.
	// Data: session_id, tool.
	KindToolCall = "tool_call"
	// KindToolDone signals completion of a tool execution.
	// Data: session_id, tool, ok, error_code, duration_ms.
	KindToolDone = "tool_done"
	// KindProviderFallback signals the session switched to the
	// secondary provider. Data: session_id, from, to, reason.
	KindProviderFallback = "provider_fallback"
	// KindMessageComplete signals the agent finished a customer
	// message. Data: session_id, outcome, turns, elapsed_ms,
	// response_len.
	KindMessageComplete = "message_complete"
	// KindConversationEnded signals a websocket client disconnected
	// or the session was reaped. Data: session_id, reason.
	KindConversationEnded = "conversation_ended"
)

// Event represents a single conversation event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// SessionID ties the event to a conversation.
	SessionID string `json:"session_id,omitempty"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs, so
	// Unsubscribe can accept the caller's <-chan Event view.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full, drop for that subscriber.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
