package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testWSConfig() *WSClientConfig {
	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 2 * time.Second
	cfg.ReadTimeout = 2 * time.Second
	return &cfg
}

// slotServer confirms slotSubscribe with subscription id 7, then runs serve.
func slotServer(t *testing.T, serve func(c *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "slotSubscribe" {
			t.Errorf("expected slotSubscribe, got %s", req.Method)
		}

		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  7,
		})

		serve(c)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func slotNotification(sub int64, slot int64) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "slotNotification",
		"params": map[string]interface{}{
			"subscription": sub,
			"result": map[string]interface{}{
				"slot":   slot,
				"parent": slot - 1,
				"root":   slot - 32,
			},
		},
	}
}

func TestWSClient_SubscribeSlots(t *testing.T) {
	wsURL := slotServer(t, func(c *websocket.Conn) {
		c.WriteJSON(slotNotification(7, 100))
		// Other subscriptions are ignored.
		c.WriteJSON(slotNotification(8, 555))
		c.WriteJSON(slotNotification(7, 101))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewWSClient(wsURL, testWSConfig())
	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	for _, want := range []int64{100, 101} {
		select {
		case n, ok := <-ch:
			if !ok {
				t.Fatal("channel closed early")
			}
			if n.Slot != want {
				t.Errorf("expected slot %d, got %d", want, n.Slot)
			}
			if n.Parent != want-1 {
				t.Errorf("expected parent %d, got %d", want-1, n.Parent)
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for notification")
		}
	}
}

func TestWSClient_ChannelClosesOnServerDisconnect(t *testing.T) {
	wsURL := slotServer(t, func(c *websocket.Conn) {
		c.WriteJSON(slotNotification(7, 42))
		// Returning closes the connection.
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewWSClient(wsURL, testWSConfig())
	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	var got []int64
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				if len(got) != 1 || got[0] != 42 {
					t.Errorf("expected [42], got %v", got)
				}
				return
			}
			got = append(got, n.Slot)
		case <-ctx.Done():
			t.Fatal("channel was not closed after disconnect")
		}
	}
}

func TestWSClient_ChannelClosesOnCancel(t *testing.T) {
	wsURL := slotServer(t, func(c *websocket.Conn) {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	client := NewWSClient(wsURL, testWSConfig())
	ch, err := client.SubscribeSlots(ctx)
	if err != nil {
		t.Fatalf("SubscribeSlots: %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("channel was not closed after cancel")
	}
}

func TestWSClient_SubscriptionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "Method not found"},
		})
	}))
	defer server.Close()

	client := NewWSClient("ws"+strings.TrimPrefix(server.URL, "http"), testWSConfig())
	_, err := client.SubscribeSlots(context.Background())
	if !errors.Is(err, ErrSubscriptionRejected) {
		t.Fatalf("expected ErrSubscriptionRejected, got %v", err)
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	client := NewWSClient("ws://127.0.0.1:1", testWSConfig())
	if _, err := client.SubscribeSlots(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}
