// Package agent implements the conversation loop: provider calls, tool
// execution, context injection, and primary/secondary failover.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bookly/support-agent/internal/events"
	"github.com/bookly/support-agent/internal/llm"
	"github.com/bookly/support-agent/internal/prompts"
	"github.com/bookly/support-agent/internal/session"
	"github.com/bookly/support-agent/internal/tools"
)

// orderIDPattern matches Bookly order numbers in customer messages.
var orderIDPattern = regexp.MustCompile(`(?i)ORD-\d{4}-\d{5}`)

// DefaultMaxTurns bounds provider round-trips per customer message.
const DefaultMaxTurns = 10

// exhaustedApology is sent when the turn budget runs out before the
// model produces a final answer.
const exhaustedApology = "I'm sorry, I wasn't able to finish working on that request. Could you rephrase it, or would you like me to create a support ticket so our team can follow up?"

// Sink receives live output while a message is being processed. All
// methods are called from the processing goroutine.
type Sink interface {
	// Token delivers an incremental piece of assistant text.
	Token(token string)
	// ToolUse fires when the model starts a tool invocation.
	ToolUse(name string)
	// ToolResult fires when a tool finishes.
	ToolResult(name string, result tools.Result)
}

type nopSink struct{}

func (nopSink) Token(string)                    {}
func (nopSink) ToolUse(string)                  {}
func (nopSink) ToolResult(string, tools.Result) {}

// Outcome summarizes one processed customer message.
type Outcome struct {
	Response     string
	Provider     string
	Model        string
	Turns        int
	FellBack     bool
	Exhausted    bool
	ToolsUsed    []string
	InputTokens  int
	OutputTokens int
}

// Config wires a Loop.
type Config struct {
	Primary        llm.Client
	PrimaryModel   string
	Secondary      llm.Client
	SecondaryModel string

	Registry *tools.Registry
	Bus      *events.Bus

	// MaxTurns bounds provider round-trips per message; zero means
	// DefaultMaxTurns.
	MaxTurns int
	// ProviderTimeout bounds each provider call; zero disables it.
	ProviderTimeout time.Duration

	Logger *slog.Logger
}

// Loop is the conversation engine. One Loop serves all sessions.
type Loop struct {
	primary        llm.Client
	primaryModel   string
	secondary      llm.Client
	secondaryModel string

	registry *tools.Registry
	bus      *events.Bus

	maxTurns        int
	providerTimeout time.Duration
	logger          *slog.Logger
}

// New creates a conversation loop.
func New(cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Loop{
		primary:         cfg.Primary,
		primaryModel:    cfg.PrimaryModel,
		secondary:       cfg.Secondary,
		secondaryModel:  cfg.SecondaryModel,
		registry:        cfg.Registry,
		bus:             cfg.Bus,
		maxTurns:        maxTurns,
		providerTimeout: cfg.ProviderTimeout,
		logger:          logger.With("component", "agent"),
	}
}

// Greeting returns the welcome message for a session.
func (l *Loop) Greeting(sess *session.Session) string {
	email, name := sess.Identity()
	switch {
	case name != "":
		return fmt.Sprintf("Hello %s! Welcome to Bookly support. How can I help you today?", name)
	case email != "":
		return "Hello! Welcome to Bookly support. How can I help you today?"
	default:
		return "Hello! Welcome to Bookly support. I'm here to help with orders, returns, book recommendations, and any questions about our store. How can I assist you today?"
	}
}

// Process handles one customer message: it runs the provider/tool loop
// until the model produces a final answer, streaming output to sink.
// Concurrent messages on the same session are serialized.
func (l *Loop) Process(ctx context.Context, sess *session.Session, userMessage string, sink Sink) (*Outcome, error) {
	if sink == nil {
		sink = nopSink{}
	}

	sess.Lock()
	defer sess.Unlock()

	start := time.Now()

	if id := orderIDPattern.FindString(userMessage); id != "" {
		sess.SetCurrentOrderID(strings.ToUpper(id))
	}

	l.bus.Publish(events.Event{
		Source:    events.SourceAgent,
		Kind:      events.KindMessageReceived,
		SessionID: sess.ID(),
		Data: map[string]any{
			"message_len": len(userMessage),
			"text":        userMessage,
		},
	})

	outcome, err := l.run(ctx, sess, userMessage, sink, false)
	if err != nil {
		// One-shot failover: a fallback-eligible primary error moves
		// the session to the secondary provider for good and the
		// message is retried from scratch with the same history.
		if l.secondary != nil && llm.FallbackEligible(err) && sess.ActiveProvider() != llm.ProviderOpenAI {
			l.logger.Warn("primary provider failed, switching to secondary",
				"session_id", sess.ID(), "error", err)
			sess.SetActiveProvider(llm.ProviderOpenAI)
			l.bus.Publish(events.Event{
				Source:    events.SourceAgent,
				Kind:      events.KindProviderFallback,
				SessionID: sess.ID(),
				Data: map[string]any{
					"from":   llm.ProviderAnthropic,
					"to":     llm.ProviderOpenAI,
					"reason": truncateErr(err),
				},
			})
			outcome, err = l.run(ctx, sess, userMessage, sink, true)
		}
		if err != nil {
			l.bus.Publish(events.Event{
				Source:    events.SourceAgent,
				Kind:      events.KindMessageComplete,
				SessionID: sess.ID(),
				Data: map[string]any{
					"outcome":    "error",
					"elapsed_ms": time.Since(start).Milliseconds(),
				},
			})
			return nil, err
		}
	}

	kind := "completed"
	if outcome.Exhausted {
		kind = "budget_exhausted"
	}
	l.bus.Publish(events.Event{
		Source:    events.SourceAgent,
		Kind:      events.KindMessageComplete,
		SessionID: sess.ID(),
		Data: map[string]any{
			"outcome":      kind,
			"turns":        outcome.Turns,
			"elapsed_ms":   time.Since(start).Milliseconds(),
			"response_len": len(outcome.Response),
		},
	})

	l.logger.Info("message processed",
		"session_id", sess.ID(),
		"provider", outcome.Provider,
		"turns", outcome.Turns,
		"tools", len(outcome.ToolsUsed),
		"fell_back", outcome.FellBack,
		"duration", time.Since(start),
	)
	return outcome, nil
}

// run executes the provider/tool loop once against the session's
// active provider. History is only committed to the session when the
// run completes, so a failed primary run leaves no trace for the
// secondary retry.
func (l *Loop) run(ctx context.Context, sess *session.Session, userMessage string, sink Sink, fellBack bool) (*Outcome, error) {
	client, model, provider := l.clientFor(sess)
	if client == nil {
		return nil, fmt.Errorf("no provider configured")
	}

	email, name := sess.Identity()
	system := prompts.Build(prompts.Context{
		Email:          email,
		Name:           name,
		CurrentOrderID: sess.CurrentOrderID(),
	})

	convo := []llm.Message{{Role: "system", Content: system}}
	convo = append(convo, sess.History()...)
	userMsg := llm.Message{Role: "user", Content: userMessage}
	convo = append(convo, userMsg)
	newMsgs := []llm.Message{userMsg}

	defs := l.registry.Definitions()

	outcome := &Outcome{
		Provider: provider,
		Model:    model,
		FellBack: fellBack,
	}
	var responseText strings.Builder

	for turn := 1; turn <= l.maxTurns; turn++ {
		outcome.Turns = turn

		resp, err := l.chat(ctx, client, model, convo, defs, sink, &responseText)
		if err != nil {
			return nil, err
		}

		outcome.InputTokens += resp.InputTokens
		outcome.OutputTokens += resp.OutputTokens
		l.bus.Publish(events.Event{
			Source:    events.SourceAgent,
			Kind:      events.KindLLMCall,
			SessionID: sess.ID(),
			Data: map[string]any{
				"provider":      provider,
				"model":         model,
				"turn":          turn,
				"input_tokens":  resp.InputTokens,
				"output_tokens": resp.OutputTokens,
				"tool_calls":    len(resp.Message.ToolCalls),
			},
		})

		convo = append(convo, resp.Message)
		newMsgs = append(newMsgs, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			outcome.Response = responseText.String()
			sess.Append(newMsgs...)
			return outcome, nil
		}

		// Tools run sequentially in the order the model requested.
		for _, tc := range resp.Message.ToolCalls {
			args := l.injectContext(sess, tc.Name, tc.Arguments)

			l.bus.Publish(events.Event{
				Source:    events.SourceAgent,
				Kind:      events.KindToolCall,
				SessionID: sess.ID(),
				Data:      map[string]any{"tool": tc.Name},
			})

			toolStart := time.Now()
			result := l.registry.Execute(ctx, tc.Name, args)
			outcome.ToolsUsed = append(outcome.ToolsUsed, tc.Name)

			l.bus.Publish(events.Event{
				Source:    events.SourceAgent,
				Kind:      events.KindToolDone,
				SessionID: sess.ID(),
				Data: map[string]any{
					"tool":        tc.Name,
					"ok":          result.Success,
					"error_code":  result.ErrorCode,
					"duration_ms": time.Since(toolStart).Milliseconds(),
				},
			})
			sink.ToolResult(tc.Name, result)

			toolMsg := llm.Message{
				Role:       "tool",
				Content:    result.JSON(),
				ToolCallID: tc.ID,
			}
			convo = append(convo, toolMsg)
			newMsgs = append(newMsgs, toolMsg)
		}
	}

	// Turn budget exhausted without a final answer. Apologize rather
	// than leave the customer hanging; the session stays usable.
	sink.Token(exhaustedApology)
	apology := llm.Message{Role: "assistant", Content: exhaustedApology}
	newMsgs = append(newMsgs, apology)
	sess.Append(newMsgs...)

	outcome.Exhausted = true
	outcome.Response = exhaustedApology
	return outcome, nil
}

func (l *Loop) chat(ctx context.Context, client llm.Client, model string, convo []llm.Message, defs []map[string]any, sink Sink, text *strings.Builder) (*llm.ChatResponse, error) {
	if l.providerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.providerTimeout)
		defer cancel()
	}

	return client.ChatStream(ctx, model, convo, defs, func(ev llm.StreamEvent) {
		switch ev.Kind {
		case llm.KindToken:
			text.WriteString(ev.Token)
			sink.Token(ev.Token)
		case llm.KindToolUse:
			sink.ToolUse(ev.ToolName)
		}
	})
}

// clientFor resolves the session's active provider. Sessions start on
// the primary and stay on the secondary once failed over.
func (l *Loop) clientFor(sess *session.Session) (llm.Client, string, string) {
	if sess.ActiveProvider() == llm.ProviderOpenAI && l.secondary != nil {
		return l.secondary, l.secondaryModel, llm.ProviderOpenAI
	}
	return l.primary, l.primaryModel, llm.ProviderAnthropic
}

// injectContext fills session-known values into tool arguments the
// model left blank: the order under discussion and the customer email.
func (l *Loop) injectContext(sess *session.Session, tool string, args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+2)
	for k, v := range args {
		out[k] = v
	}

	if id := sess.CurrentOrderID(); id != "" && l.registry.AcceptsParam(tool, "order_id") {
		if s, _ := out["order_id"].(string); s == "" {
			out["order_id"] = id
		}
	}
	if email, _ := sess.Identity(); email != "" && l.registry.AcceptsParam(tool, "email") {
		if s, _ := out["email"].(string); s == "" {
			out["email"] = email
		}
	}
	return out
}

func truncateErr(err error) string {
	s := err.Error()
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
