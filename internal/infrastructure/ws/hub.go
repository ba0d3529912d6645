package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shoppy-backend/products-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var _ domain.ChangeBroadcaster = (*Hub)(nil)

// eventProductUpdated is the wire event name clients subscribe to. It
// carries no product payload; clients are expected to re-fetch.
const eventProductUpdated = "productUpdated"

const writeTimeout = 5 * time.Second

type changeEvent struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans product-change notifications out to connected WebSocket clients.
// NotifyProductsChanged is a non-blocking enqueue; delivery happens on the
// hub's run loop, so a slow client or a full queue can never stall or fail
// the mutation that triggered the notification.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*websocket.Conn

	events chan changeEvent

	notificationsCounter metric.Int64Counter
}

// NewHub creates a broadcast hub. Run must be started for notifications to
// be delivered.
func NewHub(meter metric.Meter, logger *slog.Logger) *Hub {
	notificationsCounter, _ := meter.Int64Counter(
		"products.notifications",
		metric.WithDescription("Product change notifications by result"),
	)

	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:               logger,
		clients:              make(map[string]*websocket.Conn),
		events:               make(chan changeEvent, 16),
		notificationsCounter: notificationsCounter,
	}
}

// NotifyProductsChanged enqueues a change event. When the queue is full the
// event is dropped with a log line; clients that missed it converge on the
// next notification.
func (h *Hub) NotifyProductsChanged() {
	event := changeEvent{
		Event:     eventProductUpdated,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.events <- event:
		h.notificationsCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("result", "queued")),
		)
	default:
		h.notificationsCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("result", "dropped")),
		)
		h.logger.Warn("Change notification dropped, queue full",
			slog.String("event_id", event.ID),
		)
	}
}

// Run delivers queued events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case event := <-h.events:
			h.broadcast(ctx, event)
		}
	}
}

// Handle upgrades the request and registers the connection with the hub.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Problem initiating websocket",
			slog.String("error", err.Error()),
		)
		return
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.clients[id] = conn
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.InfoContext(r.Context(), "Websocket client connected",
		slog.String("client_id", id),
		slog.Int("clients", count),
	)

	// Drain inbound frames so close/ping handling works; clients do not
	// send application messages.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(id)
				return
			}
		}
	}()
}

func (h *Hub) broadcast(ctx context.Context, event changeEvent) {
	h.mu.Lock()
	conns := make(map[string]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		conns[id] = conn
	}
	h.mu.Unlock()

	for id, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.WarnContext(ctx, "Dropping websocket client after failed write",
				slog.String("client_id", id),
				slog.String("error", err.Error()),
			)
			h.remove(id)
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
		delete(h.clients, id)
	}
}
