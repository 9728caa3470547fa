// Package ws exposes the chat agent over WebSocket. One connection
// serves one support conversation; the JSON frame protocol matches the
// Bookly storefront widget.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/bookly/support-agent/internal/agent"
	"github.com/bookly/support-agent/internal/buildinfo"
	"github.com/bookly/support-agent/internal/events"
	"github.com/bookly/support-agent/internal/session"
	"github.com/bookly/support-agent/internal/store"
	"github.com/bookly/support-agent/internal/tools"
)

// processingError is sent to the customer when the agent fails.
const processingError = "I apologize, but I encountered an error processing your request. Please try again."

// Agent is the conversation engine the gateway drives. Satisfied by
// *agent.Loop.
type Agent interface {
	Greeting(sess *session.Session) string
	Process(ctx context.Context, sess *session.Session, userMessage string, sink agent.Sink) (*agent.Outcome, error)
}

// clientFrame is an inbound message from the widget.
type clientFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// serverFrame is an outbound message to the widget.
type serverFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Status    any    `json:"status,omitempty"`
	Email     string `json:"email,omitempty"`
	Greeting  string `json:"greeting,omitempty"`
}

// Gateway upgrades chat connections and bridges them to the agent.
type Gateway struct {
	agent    Agent
	sessions *session.Store
	store    *store.Store
	bus      *events.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a gateway.
func New(ag Agent, sessions *session.Store, st *store.Store, bus *events.Bus, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		agent:    ag,
		sessions: sessions,
		store:    st,
		bus:      bus,
		logger:   logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The widget is served from the storefront origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router returns the HTTP routes served by the gateway.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws/chat/{sessionID}", g.handleChat)
	r.Get("/health", g.handleHealth)
	r.Get("/version", g.handleVersion)
	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"}, g.logger)
}

func (g *Gateway) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), g.logger)
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	sess := g.sessions.GetOrCreate(sessionID)
	g.logger.Info("client connected", "session_id", sess.ID())

	g.bus.Publish(events.Event{
		Source:    events.SourceGateway,
		Kind:      events.KindConversationStarted,
		SessionID: sess.ID(),
	})
	defer g.bus.Publish(events.Event{
		Source:    events.SourceGateway,
		Kind:      events.KindConversationEnded,
		SessionID: sess.ID(),
	})

	c := &conversation{gateway: g, conn: conn, sess: sess}

	// The greeting rides on the connected frame so the widget never
	// sees a message_complete it didn't ask for. Identity is read under
	// the session lock; a reconnect may race the cleanup goroutine.
	sess.Lock()
	greeting := g.agent.Greeting(sess)
	sess.Unlock()

	c.send(serverFrame{
		Type:      "connected",
		Message:   "Connected to Bookly Support",
		SessionID: sess.ID(),
		Greeting:  greeting,
	})

	c.readLoop(r.Context())
	g.logger.Info("client disconnected", "session_id", sess.ID())
}

// conversation is the per-connection state. All reads and writes happen
// on the readLoop goroutine, which is what gorilla requires.
type conversation struct {
	gateway *Gateway
	conn    *websocket.Conn
	sess    *session.Session
}

func (c *conversation) readLoop(ctx context.Context) {
	for {
		var frame clientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.gateway.logger.Warn("read failed", "session_id", c.sess.ID(), "error", err)
			}
			return
		}

		switch frame.Type {
		case "message", "":
			c.handleMessage(ctx, frame)
		case "ping":
			c.send(serverFrame{Type: "pong"})
		case "set_user":
			c.identify(frame.UserEmail)
			c.send(serverFrame{Type: "user_set", Email: frame.UserEmail})
		default:
			c.gateway.logger.Debug("unknown frame type", "session_id", c.sess.ID(), "type", frame.Type)
		}
	}
}

func (c *conversation) handleMessage(ctx context.Context, frame clientFrame) {
	if strings.TrimSpace(frame.Content) == "" {
		return
	}
	if frame.UserEmail != "" {
		c.identify(frame.UserEmail)
	}

	c.send(serverFrame{Type: "typing", Status: true})
	defer c.send(serverFrame{Type: "typing", Status: false})

	_, err := c.gateway.agent.Process(ctx, c.sess, frame.Content, c)
	if err != nil {
		c.gateway.logger.Error("process message failed", "session_id", c.sess.ID(), "error", err)
		c.send(serverFrame{Type: "error", Message: processingError})
		return
	}
	c.send(serverFrame{Type: "message_complete"})
}

// identify resolves the email against the customer base so the agent
// can greet by name. Unknown emails are kept; the tools verify
// ownership on their own.
func (c *conversation) identify(email string) {
	if email == "" {
		return
	}

	name := ""
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	customer, err := c.gateway.store.CustomerByEmail(ctx, email)
	switch {
	case err == nil:
		name = customer.Name
	case errors.Is(err, store.ErrNotFound):
	default:
		c.gateway.logger.Error("customer lookup failed", "email", email, "error", err)
	}

	c.sess.Lock()
	reset := c.sess.SetIdentity(email, name)
	c.sess.Unlock()
	if reset {
		c.gateway.logger.Info("session identity changed, history cleared", "session_id", c.sess.ID())
	}
	c.gateway.bus.Publish(events.Event{
		Source:    events.SourceGateway,
		Kind:      events.KindUserIdentified,
		SessionID: c.sess.ID(),
		Data:      map[string]any{"email": email, "known_customer": name != ""},
	})
}

// Token implements agent.Sink.
func (c *conversation) Token(token string) {
	c.send(serverFrame{Type: "stream", Content: token})
}

// ToolUse implements agent.Sink.
func (c *conversation) ToolUse(name string) {
	c.send(serverFrame{Type: "tool_use", Tool: name, Status: "executing"})
}

// ToolResult implements agent.Sink.
func (c *conversation) ToolResult(name string, _ tools.Result) {
	c.send(serverFrame{Type: "tool_result", Tool: name, Status: "complete"})
}

func (c *conversation) send(frame serverFrame) {
	if err := c.conn.WriteJSON(frame); err != nil {
		c.gateway.logger.Debug("write failed", "session_id", c.sess.ID(), "error", err)
	}
}

// writeJSON encodes v to w. Errors usually mean the client went away.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}
