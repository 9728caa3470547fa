package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch := b.Subscribe(4)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Source: SourceAgent, Kind: KindToolCall, SessionID: "s1"})

	select {
	case e := <-ch:
		if e.Kind != KindToolCall || e.SessionID != "s1" {
			t.Errorf("event = %+v", e)
		}
		if e.Timestamp.IsZero() {
			t.Error("timestamp should be stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestNilBusIsNoOp(t *testing.T) {
	var b *Bus
	b.Publish(Event{Kind: KindLLMCall})
	if b.SubscriberCount() != 0 {
		t.Error("nil bus should report zero subscribers")
	}
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Kind: KindMessageReceived})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}
	// Second unsubscribe is a no-op
	b.Unsubscribe(ch)
	if b.SubscriberCount() != 0 {
		t.Errorf("subscribers = %d", b.SubscriberCount())
	}
}
