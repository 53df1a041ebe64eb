package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Plan events over WebSocket, using the graphql-transport-ws message shapes
// (connection_init, subscribe, next, complete) without a query language.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	PlanID string `json:"planId"`
}

// PlanWSHandler handles /v1/plans/ws. With ?planId= the connection is
// subscribed to that plan right away under id "plan"; further subscribe
// messages may name other plans, and an empty planId follows the tenant's
// plan lifecycle events.
func (s *Server) PlanWSHandler(w http.ResponseWriter, r *http.Request) {
	_, tenant := s.withTenant(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		topic string
		ch    chan SSEEvent
	}
	subs := map[string]sub{}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// gorilla allows one concurrent writer
	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	subscribe := func(id, planID string) {
		if _, dup := subs[id]; dup {
			_ = write(wsMessage{Type: "error", ID: id, Payload: []byte(`{"message":"subscription id in use"}`)})
			return
		}
		topic := tenantTopic(tenant)
		if planID != "" {
			if _, err := s.Store.GetPlan(r.Context(), tenant, planID); err != nil {
				_ = write(wsMessage{Type: "error", ID: id, Payload: []byte(`{"message":"plan not found"}`)})
				_ = write(wsMessage{Type: "complete", ID: id})
				return
			}
			topic = planTopic(planID)
		}
		ch := s.Broker.Subscribe(topic)
		subs[id] = sub{topic: topic, ch: ch}
		go func() {
			for evt := range ch {
				payload, _ := json.Marshal(map[string]any{"type": evt.Type, "data": evt.Data})
				if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
					return
				}
			}
			_ = write(wsMessage{Type: "complete", ID: id})
		}()
	}

	if planID := r.URL.Query().Get("planId"); planID != "" {
		subscribe("plan", planID)
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				if err := write(wsMessage{Type: "ping"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			subscribe(msg.ID, pl.PlanID)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.topic, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
	// Cleanup
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.topic, s0.ch)
		delete(subs, id)
	}
}
