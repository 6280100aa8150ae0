package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub()
	srv := httptest.NewServer(&Handler{Hub: hub})
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func joinUser(t *testing.T, hub *Hub, conn *websocket.Conn, userID int64) {
	t.Helper()

	msg := map[string]any{"event": "join-user", "userId": userID}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("sending join-user: %v", err)
	}

	// Subscription happens on the server's read goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub, conn := newTestServer(t)
	joinUser(t, hub, conn, 7)

	hub.Publish(7, "new-claim", map[string]any{"itemId": 3, "itemTitle": "Black Phone"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}

	var got struct {
		Event string `json:"event"`
		Data  struct {
			ItemID    int64  `json:"itemId"`
			ItemTitle string `json:"itemTitle"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if got.Event != "new-claim" {
		t.Errorf("event = %q, want new-claim", got.Event)
	}
	if got.Data.ItemTitle != "Black Phone" {
		t.Errorf("itemTitle = %q", got.Data.ItemTitle)
	}
}

func TestPublishOtherUserNotDelivered(t *testing.T) {
	hub, conn := newTestServer(t)
	joinUser(t, hub, conn, 7)

	hub.Publish(8, "new-claim", map[string]any{"itemId": 1})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received event published to a different user")
	}
}

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	hub := NewHub()

	// Must not panic or block.
	hub.Publish(42, "new-claim", map[string]any{"itemId": 1})

	if n := hub.SubscriberCount(42); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}

func TestRejoinMovesSubscription(t *testing.T) {
	hub, conn := newTestServer(t)
	joinUser(t, hub, conn, 7)
	joinUser(t, hub, conn, 9)

	if n := hub.SubscriberCount(7); n != 0 {
		t.Errorf("old channel still has %d subscribers", n)
	}
	if n := hub.SubscriberCount(9); n != 1 {
		t.Errorf("new channel has %d subscribers, want 1", n)
	}
}

func TestDisconnectUnsubscribes(t *testing.T) {
	hub, conn := newTestServer(t)
	joinUser(t, hub, conn, 7)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(7) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInvalidClientMessagesIgnored(t *testing.T) {
	hub, conn := newTestServer(t)

	for _, raw := range []string{"not json", `{"event":"join-user","userId":"abc"}`, `{"event":"join-user","userId":-1}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("writing message: %v", err)
		}
	}

	// A valid join afterwards still works, so the bad frames did not
	// kill the connection.
	joinUser(t, hub, conn, 5)
}

// dialRawClient upgrades one connection and hands back the server-side
// client so tests can drive subscribe and unsubscribe directly.
func dialRawClient(t *testing.T) *client {
	t.Helper()

	ch := make(chan *client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch <- &client{conn: conn, send: make(chan []byte, sendBuffer)}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return <-ch
}

func TestUnsubscribedClientCannotRejoin(t *testing.T) {
	hub := NewHub()
	c := dialRawClient(t)

	hub.subscribe(c, 7)
	hub.unsubscribe(c)

	// A join-user processed after the disconnect must not put the
	// closed send channel back into the routing table.
	hub.subscribe(c, 7)
	if n := hub.SubscriberCount(7); n != 0 {
		t.Fatalf("closed client re-registered, SubscriberCount = %d", n)
	}

	// With no live subscriber the publish is a no-op, not a panic.
	hub.Publish(7, "new-claim", map[string]any{"itemId": 1})
}

func TestUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	c := dialRawClient(t)

	hub.subscribe(c, 7)
	hub.unsubscribe(c)
	hub.unsubscribe(c)
}

func TestPublishConcurrentWithDisconnects(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(&Handler{Hub: hub})
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Publish(7, "new-claim", map[string]any{"itemId": 1})
				}
			}
		}()
	}

	// Churn connections while the publishers hammer the same channel.
	// Nobody reads from these connections, so send buffers fill and the
	// hub also exercises the stalled-client path.
	for i := 0; i < 100; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dialing websocket: %v", err)
		}
		conn.WriteJSON(map[string]any{"event": "join-user", "userId": 7})
		conn.Close()
	}

	close(stop)
	wg.Wait()

	// Every connection is gone; the hub must drain to empty.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(7) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscribers not cleaned up after churn")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
