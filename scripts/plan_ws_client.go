//go:build ignore

// plan_ws_client creates a small plan, follows it over the plan WebSocket and
// deletes it so a plan.deleted event comes through.
//
//	go run scripts/plan_ws_client.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	body := []byte(`{"planDate":"2026-10-15","totalDays":2,"mode":"walking","stops":[
		{"id":"v1","label":"101 Elm St","location":{"lat":35.2010,"lng":-101.8300}},
		{"id":"v2","label":"105 Elm St","location":{"lat":35.2012,"lng":-101.8290}},
		{"id":"v3","label":"12 Oak Ave","location":{"lat":35.2050,"lng":-101.8240}},
		{"id":"v4","label":"18 Oak Ave","location":{"lat":35.2055,"lng":-101.8232}}
	]}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/plans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "organizer")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var plan struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil || plan.ID == "" {
		log.Fatalf("create plan: status=%d err=%v", resp.StatusCode, err)
	}
	log.Printf("Plan ID: %s", plan.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/plans/ws", RawQuery: "planId=" + plan.ID}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// tenant-wide lifecycle events as well
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "tenant", Payload: json.RawMessage(`{}`)}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s %s: %s", m.Type, m.ID, string(m.Payload))
		}
	}()

	time.Sleep(500 * time.Millisecond)
	delReq, _ := http.NewRequest(http.MethodDelete, base+"/v1/plans/"+plan.ID, nil)
	delReq.Header.Set("X-Tenant-Id", "t_demo")
	delReq.Header.Set("X-Role", "organizer")
	if resp, err := http.DefaultClient.Do(delReq); err == nil {
		_ = resp.Body.Close()
	}

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
