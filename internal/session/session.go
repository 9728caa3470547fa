// Package session tracks per-conversation state: customer identity,
// chat history, the order under discussion, and the active provider.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookly/support-agent/internal/llm"
)

// DefaultHistoryLimit bounds how many messages a session retains.
const DefaultHistoryLimit = 20

// Session is the state of one conversation. All access goes through
// methods; the embedded mutex serializes concurrent message handling
// for the same session.
type Session struct {
	mu sync.Mutex

	id             string
	email          string
	name           string
	currentOrderID string
	activeProvider string
	history        []llm.Message
	historyLimit   int

	createdAt  time.Time
	lastActive time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Lock takes the session's processing lock. One inbound message is
// handled at a time per session; a second message on the same session
// waits here.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the processing lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Identity returns the customer's email and name, empty if not set.
func (s *Session) Identity() (email, name string) {
	return s.email, s.name
}

// SetIdentity records who the customer is. Changing to a different
// email resets the conversation so one customer's history cannot leak
// into another's. Setting the same email again (case-insensitive) is a
// no-op apart from the name update.
func (s *Session) SetIdentity(email, name string) (reset bool) {
	if s.email != "" && !strings.EqualFold(s.email, email) {
		s.history = nil
		s.currentOrderID = ""
		reset = true
	}
	s.email = email
	s.name = name
	s.touch()
	return reset
}

// CurrentOrderID returns the order currently under discussion.
func (s *Session) CurrentOrderID() string {
	return s.currentOrderID
}

// SetCurrentOrderID records the order under discussion.
func (s *Session) SetCurrentOrderID(id string) {
	s.currentOrderID = id
	s.touch()
}

// ActiveProvider returns the provider serving this session, or "" if
// the primary has never failed over.
func (s *Session) ActiveProvider() string {
	return s.activeProvider
}

// SetActiveProvider pins the session to a provider. Used once when the
// primary fails over; the switch is sticky for the session's lifetime.
func (s *Session) SetActiveProvider(provider string) {
	s.activeProvider = provider
}

// History returns a copy of the retained messages.
func (s *Session) History() []llm.Message {
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append adds messages to the history and trims to the retention limit.
// Trimming drops the oldest messages first and never leaves a tool
// result at the head: a tool message whose originating assistant call
// was trimmed away would be rejected by the providers.
func (s *Session) Append(msgs ...llm.Message) {
	s.history = append(s.history, msgs...)
	limit := s.historyLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
		for len(s.history) > 0 && s.history[0].Role == "tool" {
			s.history = s.history[1:]
		}
	}
	s.touch()
}

// LastActive reports when the session last saw activity.
func (s *Session) LastActive() time.Time {
	return s.lastActive
}

// CreatedAt reports when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) touch() {
	s.lastActive = time.Now().UTC()
}

// Store is an in-memory session registry.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	historyLimit int
}

// NewStore creates a session store. historyLimit bounds per-session
// history; zero means DefaultHistoryLimit.
func NewStore(historyLimit int) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
	}
}

// GetOrCreate returns the session with the given id, creating it if
// needed. An empty id gets a generated one.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s
	}
	now := time.Now().UTC()
	s := &Session{
		id:           id,
		historyLimit: st.historyLimit,
		createdAt:    now,
		lastActive:   now,
	}
	st.sessions[id] = s
	return s
}

// Get returns an existing session or nil.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// CleanupIdle removes sessions idle longer than maxIdle and returns the
// ids removed. lastActive is written under the per-session mutex, so
// each candidate is inspected under that lock, outside the store lock.
// A session mid-message holds its lock and is skipped until it finishes.
func (st *Store) CleanupIdle(maxIdle time.Duration) []string {
	cutoff := time.Now().UTC().Add(-maxIdle)

	st.mu.RLock()
	candidates := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.RUnlock()

	var removed []string
	for _, s := range candidates {
		if !s.mu.TryLock() {
			continue
		}
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			removed = append(removed, s.id)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	st.mu.Lock()
	for _, id := range removed {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	return removed
}
