package websockets

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/gorilla/websocket"
)

const broadcastBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketManager initializes a WebSocketManager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan Envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
	}
}

// Run owns every connection write until ctx is cancelled, then closes all
// connections.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			manager.mu.Lock()
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.Conn] = client
			manager.mu.Unlock()

		case conn := <-manager.unregister:
			manager.mu.Lock()
			if _, exists := manager.clients[conn]; exists {
				delete(manager.clients, conn)
				conn.Close()
				log.Printf("Client %s disconnected", conn.RemoteAddr())
			}
			manager.mu.Unlock()

		case sub := <-manager.subscribe:
			manager.mu.Lock()
			if client, exists := manager.clients[sub.conn]; exists {
				client.Topics = make(map[string]bool, len(sub.topics))
				for _, t := range sub.topics {
					client.Topics[t] = true
				}
			}
			manager.mu.Unlock()

		case env := <-manager.broadcast:
			msg, err := json.Marshal(env)
			if err != nil {
				log.Printf("unable to encode %s message: %v", env.Type, err)
				continue
			}
			manager.mu.Lock()
			for conn, client := range manager.clients {
				if !client.wants(env.Type) {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(manager.clients, conn)
				}
			}
			manager.mu.Unlock()
		}
	}
}

// HandleConnections upgrades HTTP requests to WebSocket connections
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket Upgrade Error:", err)
		return
	}

	select {
	case manager.register <- &Client{Conn: conn}:
	case <-manager.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			log.Println("Invalid JSON:", err)
			continue
		}

		switch message.Type {
		case MsgTypeSubscribe:
			select {
			case manager.subscribe <- subscription{conn: conn, topics: message.Topics}:
			case <-manager.done:
				return
			}

		case MsgTypeLocation:
			if manager.OnLocation == nil {
				continue
			}
			if err := manager.OnLocation(message.Latitude, message.Longitude); err != nil {
				log.Printf("location from %s rejected: %v", conn.RemoteAddr(), err)
			}
		}
	}
}

// Publish queues a frame for every subscriber of kind. Frames are dropped
// when the queue is full.
func (manager *WebSocketManager) Publish(kind string, data interface{}) {
	select {
	case manager.broadcast <- Envelope{Type: kind, Data: data}:
	default:
		log.Printf("websocket queue full, dropping %s message", kind)
	}
}

// Deliver pushes a delivered notification to subscribers.
func (manager *WebSocketManager) Deliver(_ context.Context, n model.DeliveredNotification) error {
	manager.Publish(MsgTypeNotification, n)
	return nil
}

// ClientCount returns the number of connected clients.
func (manager *WebSocketManager) ClientCount() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.clients)
}
