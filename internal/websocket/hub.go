package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"hookchat-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans thread events out to WebSocket subscribers. Connections subscribe
// to a single thread via the chatId query parameter.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("chatId")
	if threadID == "" {
		http.Error(w, "chatId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(threadID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(threadID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish delivers an event to every subscriber of the thread. Implements
// services.EventSink.
func (h *Hub) Publish(threadID string, event services.ThreadEvent) {
	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.connections[threadID]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			h.unregisterConnection(threadID, conn)
		}
	}
}

func (h *Hub) registerConnection(threadID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.connections[threadID] = append(h.connections[threadID], conn)
	h.mu.Unlock()
}

func (h *Hub) unregisterConnection(threadID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[threadID]
	for i, c := range conns {
		if c == conn {
			h.connections[threadID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[threadID]) == 0 {
		delete(h.connections, threadID)
	}
	conn.Close()
}
