package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer upgrades every connection and hands it to serve.
func wsServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWSClient_Connect(t *testing.T) {
	url := wsServer(t, drain)

	client, err := NewWSClient(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeAccount(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if req.Method != "accountSubscribe" {
			t.Errorf("expected accountSubscribe, got %s", req.Method)
		}
		conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 7})

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 12},
					"value": map[string]interface{}{
						"lamports": 5000,
						"owner":    SystemProgramID.String(),
						"data":     []string{"", "base64"},
					},
				},
			},
		})
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 13},
					"value":   nil,
				},
			},
		})
		drain(conn)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeAccount(ctx, "acct")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}

	select {
	case n := <-ch:
		if n.Pubkey != "acct" || n.Slot != 12 {
			t.Errorf("unexpected notification: %+v", n)
		}
		if n.Account == nil || n.Account.Lamports != 5000 {
			t.Errorf("unexpected account: %+v", n.Account)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for notification")
	}

	select {
	case n := <-ch:
		if n.Slot != 13 || n.Account != nil {
			t.Errorf("expected closed-account notification, got %+v", n)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for second notification")
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		raw, _ := json.Marshal(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
		})
		conn.WriteMessage(websocket.TextMessage, raw)
		drain(conn)
	})

	client, err := NewWSClient(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := client.SubscribeAccount(ctx, "bad"); err == nil {
		t.Fatal("expected subscribe to fail")
	}
}

func TestWSClient_Close(t *testing.T) {
	client, err := NewWSClient(context.Background(), wsServer(t, drain), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	if _, err := client.SubscribeAccount(context.Background(), "acct"); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	config := &WSClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	client, err := NewWSClient(context.Background(), wsServer(t, drain), config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
	if client.config.Buffer != DefaultWSConfig().Buffer {
		t.Errorf("expected default buffer, got %d", client.config.Buffer)
	}
}

func TestWSClient_Resubscribe(t *testing.T) {
	var conns atomic.Int32
	url := wsServer(t, func(conn *websocket.Conn) {
		n := conns.Add(1)
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subID := int64(n * 10)
		conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID})
		if n == 1 {
			// drop the first connection right after confirming
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]interface{}{
				"subscription": subID,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 99},
					"value":   nil,
				},
			},
		})
		drain(conn)
	})

	config := DefaultWSConfig()
	config.ReconnectDelay = 10 * time.Millisecond
	client, err := NewWSClient(context.Background(), url, &config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := client.SubscribeAccount(ctx, "acct")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}

	select {
	case n := <-ch:
		if n.Slot != 99 || n.Pubkey != "acct" {
			t.Errorf("unexpected notification after reconnect: %+v", n)
		}
	case <-ctx.Done():
		t.Fatal("no notification after reconnect")
	}
}
