package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"vehicle_parking/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AvailabilityHub fans spot status transitions out to connected websocket
// clients so dashboards can refresh without polling.
type AvailabilityHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.RWMutex
}

func NewAvailabilityHub() *AvailabilityHub {
	return &AvailabilityHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 16),
	}
}

func (h *AvailabilityHub) Start() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("availability client connected, total: %d", len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			log.Printf("availability client disconnected, total: %d", len(h.clients))

		case message := <-h.broadcast:
			// Write lock: failed clients are dropped from the map mid-loop.
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("writing to availability client: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastSpotUpdate implements service.SpotNotifier.
func (h *AvailabilityHub) BroadcastSpotUpdate(n domain.SpotStatusNotification) {
	message, err := json.Marshal(n)
	if err != nil {
		log.Printf("marshaling spot notification: %v", err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		log.Println("availability broadcast channel full, dropping message")
	}
}

type WebSocketHandler struct {
	hub *AvailabilityHub
}

func NewWebSocketHandler(hub *AvailabilityHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.hub.register <- conn

	go func() {
		defer func() {
			h.hub.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				break
			}
		}
	}()
}
