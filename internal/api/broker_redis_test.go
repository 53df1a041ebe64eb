package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassplan/internal/config"
)

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	require.NoError(t, err)
	defer b.Close()

	topic := planTopic("p1")
	ch := b.Subscribe(topic)
	b.Publish(topic, SSEEvent{Type: "plan.deleted", Data: map[string]any{"planId": "p1", "stops": 3}})

	select {
	case got := <-ch:
		assert.Equal(t, "plan.deleted", got.Type)
		assert.Equal(t, "p1", got.Data["planId"])
		// numbers come back as JSON numbers
		assert.Equal(t, 3.0, got.Data["stops"])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe(topic, ch)
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestNewRedisBrokerUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisBroker("redis://" + addr)
	assert.Error(t, err)
}

func TestNewServerFallsBackToMemoryBroker(t *testing.T) {
	s, err := NewServer(config.Config{RedisURL: "redis://127.0.0.1:1"})
	require.NoError(t, err)
	_, ok := s.Broker.(*Broker)
	assert.True(t, ok)

	mr := miniredis.RunT(t)
	s, err = NewServer(config.Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	rb, ok := s.Broker.(*RedisBroker)
	require.True(t, ok)
	_ = rb.Close()
}
