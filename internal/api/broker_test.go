package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	topic := planTopic("p1")
	ch := b.Subscribe(topic)

	evt := SSEEvent{Type: "plan.created", Data: map[string]any{"x": 1}}
	b.Publish(topic, evt)
	b.Publish(tenantTopic("t1"), SSEEvent{Type: "other"})

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["x"].(int) != 1 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected event from another topic: %+v", got)
	default:
	}

	b.Unsubscribe(topic, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// second unsubscribe must not panic on the closed channel
	b.Unsubscribe(topic, ch)
}

func TestBrokerPublishDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("slow")
	defer b.Unsubscribe("slow", ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish("slow", SSEEvent{Type: "tick"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer len=%d, want %d", len(ch), cap(ch))
	}
}
