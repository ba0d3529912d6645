package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func newTestHub() *Hub {
	meter := sdkmetric.NewMeterProvider().Meter("test")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewHub(meter, logger)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", wsURL, err)
	}
	return conn
}

func TestNotifyReachesConnectedClients(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.Handle))
	defer srv.Close()

	conn := dial(t, srv.URL)
	defer conn.Close()

	// The subscription registers synchronously during the upgrade, so the
	// notification observes the client.
	hub.NotifyProductsChanged()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event changeEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Event != eventProductUpdated {
		t.Errorf("event = %q, want %q", event.Event, eventProductUpdated)
	}
	if event.ID == "" {
		t.Error("event id is empty")
	}
}

func TestNotifyFansOutToAllClients(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.Handle))
	defer srv.Close()

	first := dial(t, srv.URL)
	defer first.Close()
	second := dial(t, srv.URL)
	defer second.Close()

	hub.NotifyProductsChanged()

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event changeEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("reading event: %v", err)
		}
		if event.Event != eventProductUpdated {
			t.Errorf("event = %q, want %q", event.Event, eventProductUpdated)
		}
	}
}

func TestNotifyNeverBlocks(t *testing.T) {
	// No run loop draining the queue; the enqueue must still return.
	hub := newTestHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.NotifyProductsChanged()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyProductsChanged blocked with a full queue")
	}
}

func TestNotifyWithoutClients(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Must not panic or block with nobody connected.
	hub.NotifyProductsChanged()
}
