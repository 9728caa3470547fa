// Package analytics records conversation events and per-session
// rollups. The collector subscribes to the event bus so the agent and
// gateway never talk to it directly.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bookly/support-agent/internal/events"
	"github.com/bookly/support-agent/internal/store"
)

// convoState is the in-memory rollup for one live conversation.
type convoState struct {
	email          string
	startedAt      time.Time
	messageCount   int
	toolCallCount  int
	fallbacks      int
	topics         []string
	topicSeen      map[string]bool
	sentimentScore float64
	sentimentSeen  bool
	completed      int
	escalated      bool
}

// Collector consumes bus events, persists them, and maintains
// conversation rollups.
type Collector struct {
	store  *store.Store
	bus    *events.Bus
	logger *slog.Logger

	mu     sync.Mutex
	convos map[string]*convoState

	ch   <-chan events.Event
	done chan struct{}
}

// New creates a collector. Call Start to begin consuming events.
func New(st *store.Store, bus *events.Bus, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		store:  st,
		bus:    bus,
		logger: logger.With("component", "analytics"),
		convos: make(map[string]*convoState),
	}
}

// Start subscribes to the bus and processes events until Stop.
func (c *Collector) Start() {
	c.ch = c.bus.Subscribe(256)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		for e := range c.ch {
			c.handle(e)
		}
	}()
}

// Stop unsubscribes and waits for in-flight events to drain.
func (c *Collector) Stop() {
	if c.ch == nil {
		return
	}
	c.bus.Unsubscribe(c.ch)
	<-c.done
}

func (c *Collector) handle(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.InsertAnalyticsEvent(ctx, store.AnalyticsEvent{
		SessionID: e.SessionID,
		Type:      e.Kind,
		Payload:   e.Data,
		CreatedAt: e.Timestamp,
	}); err != nil {
		c.logger.Error("persist event", "kind", e.Kind, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Kind {
	case events.KindConversationStarted:
		if _, exists := c.convos[e.SessionID]; !exists {
			c.convos[e.SessionID] = &convoState{
				startedAt: e.Timestamp,
				topicSeen: make(map[string]bool),
			}
		}

	case events.KindUserIdentified:
		cs := c.state(e)
		if email, _ := e.Data["email"].(string); email != "" {
			cs.email = email
		}

	case events.KindMessageReceived:
		cs := c.state(e)
		cs.messageCount++
		if text, _ := e.Data["text"].(string); text != "" {
			label := AnalyzeSentiment(text)
			if !cs.sentimentSeen {
				cs.sentimentScore = sentimentValue(label)
				cs.sentimentSeen = true
			} else {
				// Weighted toward recent messages
				cs.sentimentScore = cs.sentimentScore*0.7 + sentimentValue(label)*0.3
			}
		}

	case events.KindToolDone:
		cs := c.state(e)
		cs.toolCallCount++
		tool, _ := e.Data["tool"].(string)
		topic := TopicForTool(tool)
		if !cs.topicSeen[topic] {
			cs.topicSeen[topic] = true
			cs.topics = append(cs.topics, topic)
		}
		if tool == "create_support_ticket" {
			if ok, _ := e.Data["ok"].(bool); ok {
				cs.escalated = true
			}
		}

	case events.KindProviderFallback:
		c.state(e).fallbacks++

	case events.KindMessageComplete:
		cs := c.state(e)
		if outcome, _ := e.Data["outcome"].(string); outcome == "completed" {
			cs.completed++
		}
		c.flush(ctx, e.SessionID, cs, time.Time{})

	case events.KindConversationEnded:
		cs := c.state(e)
		c.flush(ctx, e.SessionID, cs, e.Timestamp)
		delete(c.convos, e.SessionID)
	}
}

// state returns the rollup for the event's session, creating it if the
// conversation_started event was missed (dropped under load).
func (c *Collector) state(e events.Event) *convoState {
	cs, ok := c.convos[e.SessionID]
	if !ok {
		cs = &convoState{startedAt: e.Timestamp, topicSeen: make(map[string]bool)}
		c.convos[e.SessionID] = cs
	}
	return cs
}

func (c *Collector) flush(ctx context.Context, sessionID string, cs *convoState, endedAt time.Time) {
	sentiment := ""
	if cs.sentimentSeen {
		sentiment = sentimentLabel(cs.sentimentScore)
	}

	err := c.store.SaveConversationStats(ctx, store.ConversationStats{
		SessionID:         sessionID,
		CustomerEmail:     cs.email,
		StartedAt:         cs.startedAt,
		EndedAt:           endedAt,
		MessageCount:      cs.messageCount,
		ToolCallCount:     cs.toolCallCount,
		ProviderFallbacks: cs.fallbacks,
		Topics:            cs.topics,
		Sentiment:         sentiment,
		Resolved:          cs.completed > 0 && !cs.escalated,
	})
	if err != nil {
		c.logger.Error("flush conversation stats", "session_id", sessionID, "error", err)
	}
}
