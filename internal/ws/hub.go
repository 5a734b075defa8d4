package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go-inventory-uom/internal/model"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// ErrHubStopped is returned by Publish after Run has returned.
var ErrHubStopped = errors.New("ws hub stopped")

// Hub fans stock events out to every connected dashboard.
type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	logger     *zap.Logger
	done       chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast until ctx is cancelled.
// It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			total := len(h.Clients)
			h.mutex.Unlock()
			h.logger.Info("ws client connected", zap.Int("clients", total))

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Debug("dropping ws client", zap.Error(err))
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Join registers conn. It returns false once the hub has stopped.
func (h *Hub) Join(conn *websocket.Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters conn. It never blocks after the hub has stopped.
func (h *Hub) Leave(conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Event is the envelope every broadcast uses.
type Event struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Publish marshals event and hands it to Run. It gives up when ctx ends.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode ws event: %w", err)
	}
	select {
	case h.Broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyTransformation broadcasts a finished transformation to dashboards.
func (h *Hub) NotifyTransformation(ctx context.Context, record model.TransformationRecord) error {
	action := "transformation_completed"
	message := fmt.Sprintf("%s converted %v %s %s into %v %s %s",
		record.User,
		record.SourceItem.Quantity, record.SourceItem.Unit, record.SourceItem.ID,
		record.TargetItem.Quantity, record.TargetItem.Unit, record.TargetItem.ID)
	if record.Status == model.StatusFailed {
		action = "transformation_failed"
		message = fmt.Sprintf("transformation %s by %s failed: %s", record.ID, record.User, record.Error)
	}
	return h.Publish(ctx, Event{
		Type:    "stock_update",
		Action:  action,
		Message: message,
		Data:    record,
	})
}

// NotifyStockRestored tells dashboards that stock was overwritten from a backup.
func (h *Hub) NotifyStockRestored(ctx context.Context, result model.RestoreResult, user string) error {
	return h.Publish(ctx, Event{
		Type:    "stock_update",
		Action:  "stock_restored",
		Message: fmt.Sprintf("%s restored stock for %d items", user, result.Restored),
		Data:    result,
	})
}
