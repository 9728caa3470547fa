// Package tools defines the tools available to the support agent.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bookly/support-agent/internal/store"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) Result
}

// Result is the outcome of a tool execution. Execution never fails with
// a Go error: every failure becomes a structured Result the model can
// read and react to.
type Result struct {
	Success   bool           `json:"success"`
	ErrorCode string         `json:"error_code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Error codes returned in failed Results.
const (
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeEmailMismatch   = "EMAIL_MISMATCH"
	CodeNotEligible     = "NOT_ELIGIBLE"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL"
)

func failure(code, message string) Result {
	return Result{Success: false, ErrorCode: code, Message: message}
}

func success(message string, data map[string]any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// JSON renders the result for inclusion in the conversation as a tool
// message.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error_code":"INTERNAL","message":"result not serializable"}`
	}
	return string(b)
}

// Registry holds the available tools and their shared dependencies.
type Registry struct {
	tools   map[string]*Tool
	order   []string
	store   *store.Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates a registry backed by the given store. timeout
// bounds each tool execution; zero disables the bound.
func NewRegistry(st *store.Store, timeout time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:   make(map[string]*Tool),
		store:   st,
		timeout: timeout,
		logger:  logger.With("component", "tools"),
	}
	r.registerBuiltins()
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Definitions returns the tool definitions in OpenAI function format,
// in registration order. The Anthropic client converts these at its
// wire boundary.
func (r *Registry) Definitions() []map[string]any {
	defs := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return defs
}

// AcceptsParam reports whether the named tool declares the given
// input property. The agent uses this to decide where session context
// can be injected.
func (r *Registry) AcceptsParam(tool, param string) bool {
	t := r.tools[tool]
	if t == nil {
		return false
	}
	props, _ := t.Parameters["properties"].(map[string]any)
	_, ok := props[param]
	return ok
}

// Execute runs the named tool with the given arguments. It always
// returns a Result: unknown tools, invalid arguments, timeouts, and
// handler failures all come back as structured failures.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	tool := r.tools[name]
	if tool == nil {
		return failure(CodeUnknownTool, "Unknown tool: "+name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if res, ok := validateArgs(tool.Parameters, args); !ok {
		return res
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	result := tool.Handler(ctx, args)
	r.logger.Debug("tool executed",
		"tool", name,
		"success", result.Success,
		"error_code", result.ErrorCode,
		"duration", time.Since(start),
	)

	if ctx.Err() == context.DeadlineExceeded {
		return failure(CodeTimeout, "The "+name+" tool took too long to respond. Please try again.")
	}
	return result
}
