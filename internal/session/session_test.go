package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/bookly/support-agent/internal/llm"
)

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	st := NewStore(0)
	a := st.GetOrCreate("abc")
	b := st.GetOrCreate("abc")
	if a != b {
		t.Error("same id should return same session")
	}
	if st.Len() != 1 {
		t.Errorf("len = %d", st.Len())
	}
}

func TestGetOrCreateGeneratesID(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("")
	if s.ID() == "" {
		t.Error("expected generated id")
	}
}

func TestSetIdentityResetsOnChange(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("abc")
	s.Append(llm.Message{Role: "user", Content: "where is my order"})
	s.SetCurrentOrderID("ORD-2024-00003")

	if reset := s.SetIdentity("sarah@example.com", "Sarah"); reset {
		t.Error("first identity should not reset")
	}
	if len(s.History()) != 1 {
		t.Errorf("history = %d", len(s.History()))
	}

	// Same email, different case: no reset
	if reset := s.SetIdentity("Sarah@Example.com", "Sarah J"); reset {
		t.Error("case-insensitive same email should not reset")
	}
	if len(s.History()) != 1 || s.CurrentOrderID() != "ORD-2024-00003" {
		t.Error("state should survive same-email set")
	}

	// Different email: full reset
	if reset := s.SetIdentity("mike@example.com", "Mike"); !reset {
		t.Error("email change should reset")
	}
	if len(s.History()) != 0 {
		t.Errorf("history = %d after reset", len(s.History()))
	}
	if s.CurrentOrderID() != "" {
		t.Errorf("order id = %q after reset", s.CurrentOrderID())
	}
	email, name := s.Identity()
	if email != "mike@example.com" || name != "Mike" {
		t.Errorf("identity = %q/%q", email, name)
	}
}

func TestAppendTrimsHistory(t *testing.T) {
	st := NewStore(6)
	s := st.GetOrCreate("abc")

	for i := 0; i < 10; i++ {
		s.Append(llm.Message{Role: "user", Content: fmt.Sprintf("msg %d", i)})
	}

	h := s.History()
	if len(h) != 6 {
		t.Fatalf("history = %d, want 6", len(h))
	}
	if h[0].Content != "msg 4" {
		t.Errorf("oldest retained = %q, trim should drop from the front", h[0].Content)
	}
	if h[5].Content != "msg 9" {
		t.Errorf("newest = %q", h[5].Content)
	}
}

func TestAppendTrimDropsOrphanedToolResults(t *testing.T) {
	st := NewStore(4)
	s := st.GetOrCreate("abc")

	s.Append(
		llm.Message{Role: "user", Content: "where is my order?"},
		llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "toolu_1", Name: "get_order_status"}}},
		llm.Message{Role: "tool", ToolCallID: "toolu_1", Content: `{"status":"shipped"}`},
		llm.Message{Role: "assistant", Content: "It shipped."},
	)
	// Pushes the user message and the assistant tool call past the
	// limit; the tool result left at the head must go with them, or the
	// next request carries a result no provider can pair with a call.
	s.Append(
		llm.Message{Role: "user", Content: "thanks!"},
		llm.Message{Role: "assistant", Content: "Anytime."},
	)

	h := s.History()
	if len(h) != 3 {
		t.Fatalf("history = %d, want 3", len(h))
	}
	if h[0].Role == "tool" {
		t.Fatalf("head = tool result %q, its originating call was trimmed", h[0].ToolCallID)
	}
	if h[0].Content != "It shipped." {
		t.Errorf("head = %q", h[0].Content)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("abc")
	s.Append(llm.Message{Role: "user", Content: "original"})

	h := s.History()
	h[0].Content = "mutated"

	if s.History()[0].Content != "original" {
		t.Error("History should return a copy")
	}
}

func TestActiveProviderSticky(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("abc")
	if s.ActiveProvider() != "" {
		t.Errorf("initial provider = %q", s.ActiveProvider())
	}
	s.SetActiveProvider(llm.ProviderOpenAI)
	if s.ActiveProvider() != llm.ProviderOpenAI {
		t.Errorf("provider = %q", s.ActiveProvider())
	}
}

func TestCleanupIdle(t *testing.T) {
	st := NewStore(0)
	old := st.GetOrCreate("old")
	st.GetOrCreate("fresh")

	// Backdate the old session
	old.lastActive = time.Now().UTC().Add(-2 * time.Hour)

	removed := st.CleanupIdle(time.Hour)
	if len(removed) != 1 || removed[0] != "old" {
		t.Errorf("removed = %v", removed)
	}
	if st.Get("old") != nil {
		t.Error("old session should be gone")
	}
	if st.Get("fresh") == nil {
		t.Error("fresh session should remain")
	}
}

func TestCleanupIdleConcurrentWithAppend(t *testing.T) {
	st := NewStore(0)
	sess := st.GetOrCreate("busy")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			sess.Lock()
			sess.Append(llm.Message{Role: "user", Content: "hi"})
			sess.Unlock()
		}
	}()

	for i := 0; i < 200; i++ {
		st.CleanupIdle(time.Hour)
	}
	<-done

	// Survival is the assertion; the race detector catches any
	// unsynchronized lastActive access above.
	if st.Get("busy") == nil {
		t.Error("active session was removed")
	}
}

func TestCleanupIdleSkipsSessionMidMessage(t *testing.T) {
	st := NewStore(0)
	busy := st.GetOrCreate("busy")
	busy.lastActive = time.Now().UTC().Add(-2 * time.Hour)

	busy.Lock()
	removed := st.CleanupIdle(time.Hour)
	busy.Unlock()

	if len(removed) != 0 {
		t.Errorf("removed = %v, session holding its lock should be skipped", removed)
	}
	if st.Get("busy") == nil {
		t.Error("in-flight session should survive cleanup")
	}
}

func TestDelete(t *testing.T) {
	st := NewStore(0)
	st.GetOrCreate("abc")
	st.Delete("abc")
	if st.Get("abc") != nil {
		t.Error("session should be deleted")
	}
}
