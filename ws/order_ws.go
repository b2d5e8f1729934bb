package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/outbox"
	"github.com/duckieducksrgood/winchpoint/services"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// OrderUpdate is what admin dashboards receive for every order status change.
type OrderUpdate struct {
	Type    string             `json:"type"`
	OrderID uint               `json:"orderId"`
	UserID  uint               `json:"userId"`
	From    entity.OrderStatus `json:"from,omitempty"`
	To      entity.OrderStatus `json:"to"`
	Total   string             `json:"total"`
	At      time.Time          `json:"at"`
}

type client struct {
	conn   *websocket.Conn
	userID uint
}

// OrderHub fans order updates out to connected admin dashboards.
type OrderHub struct {
	log        *zap.Logger
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	broadcast  chan OrderUpdate
	register   chan *client
	unregister chan *client
	count      chan chan int
	done       chan struct{}

	mu      sync.Mutex
	running bool
}

func NewOrderHub(log *zap.Logger, allowedOrigins []string) *OrderHub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &OrderHub{
		log:        log,
		clients:    make(map[*client]bool),
		broadcast:  make(chan OrderUpdate, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run serves register/unregister/broadcast until ctx is done, then closes
// every connection.
func (h *OrderHub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
			close(h.done)
			for cl := range h.clients {
				_ = cl.conn.Close()
				delete(h.clients, cl)
			}
			return
		case cl := <-h.register:
			h.clients[cl] = true
		case reply := <-h.count:
			reply <- len(h.clients)
		case cl := <-h.unregister:
			if h.clients[cl] {
				delete(h.clients, cl)
				_ = cl.conn.Close()
			}
		case msg := <-h.broadcast:
			for cl := range h.clients {
				_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := cl.conn.WriteJSON(msg); err != nil {
					h.log.Warn("ws_write_failed", zap.Uint("user_id", cl.userID), zap.Error(err))
					_ = cl.conn.Close()
					delete(h.clients, cl)
				}
			}
		}
	}
}

// Clients asks the Run loop how many dashboards are connected.
// Zero when the hub is not running.
func (h *OrderHub) Clients() int {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// HandleOrderStatusChanged is an outbox handler. Updates are dropped when
// the hub is not running or its buffer is full.
func (h *OrderHub) HandleOrderStatusChanged(_ context.Context, e outbox.Event) error {
	ev, ok := e.(services.OrderStatusChanged)
	if !ok {
		return nil
	}
	h.Push(OrderUpdate{
		Type:    "order_status",
		OrderID: ev.OrderID,
		UserID:  ev.UserID,
		From:    ev.From,
		To:      ev.To,
		Total:   ev.Total,
		At:      ev.At,
	})
	return nil
}

func (h *OrderHub) Push(u OrderUpdate) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return
	}
	select {
	case h.broadcast <- u:
	default:
		h.log.Warn("ws_broadcast_dropped", zap.Uint("order_id", u.OrderID))
	}
}

// HandleWebSocket upgrades an authenticated admin request at /ws/orders.
func (h *OrderHub) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", zap.Error(err))
		return
	}
	cl := &client{conn: conn, userID: utils.CurrentUserID(c)}
	select {
	case h.register <- cl:
		go h.readPump(cl)
	case <-h.done:
		_ = conn.Close()
	}
}

// readPump discards client frames; it exists to notice disconnects.
func (h *OrderHub) readPump(cl *client) {
	defer func() {
		select {
		case h.unregister <- cl:
		case <-h.done:
		}
	}()
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
