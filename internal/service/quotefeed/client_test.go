package quotefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ImpVol/internal/domain/models"
)

const frame = `{"type":"quote","data":[{"symbol":"SPY250321C00500000","underlying":"SPY","type":"call",
"strike":"500","spot":"510.25","bid":"14.1","ask":"14.3","last":"14.2","expiry":"2025-03-21",
"quote_time":"2025-03-14T15:00:00Z","rate":0.045,"dividend_yield":0.013}]}`

func TestDecodeFrame(t *testing.T) {
	qs := DecodeFrame([]byte(frame))
	if len(qs) != 1 {
		t.Fatalf("got %d quotes", len(qs))
	}
	q := qs[0]
	if q.Type != models.Call || q.Strike.String() != "500" || q.Spot.String() != "510.25" {
		t.Fatalf("unexpected quote %+v", q)
	}
	if DecodeFrame([]byte(`{"type":"ping"}`)) != nil || DecodeFrame([]byte(`not json`)) != nil {
		t.Fatalf("non-quote frames must decode to nothing")
	}
}

func TestClientStreamsQuotes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var m subscribeMsg
		if err := conn.ReadJSON(&m); err != nil {
			return
		}
		subscribed <- m.Symbol
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New("secret", wsURL, []string{"SPY"}, 10*time.Millisecond, time.Second, nil)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}
	if err := c.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got := <-subscribed; got != "SPY" {
		t.Fatalf("subscribed %q", got)
	}

	quotes, _ := c.Read(ctx)
	select {
	case q := <-quotes:
		if q == nil || q.Symbol != "SPY250321C00500000" {
			t.Fatalf("unexpected quote %+v", q)
		}
	case <-ctx.Done():
		t.Fatalf("no quote received")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("expected disconnected after close")
	}
}
