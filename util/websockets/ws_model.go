package websockets

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribe    = "subscribe"
	MsgTypeLocation     = "location"
	MsgTypeState        = "state"
	MsgTypeLog          = "log"
	MsgTypeNotification = "notification"
)

// Client represents a connected WebSocket subscriber
type Client struct {
	Conn   *websocket.Conn
	Topics map[string]bool
}

// wants reports whether the client subscribed to kind. A client that never
// subscribed receives everything.
func (c *Client) wants(kind string) bool {
	return len(c.Topics) == 0 || c.Topics[kind]
}

type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan Envelope
	register   chan *Client
	unregister chan *websocket.Conn
	subscribe  chan subscription
	done       chan struct{}
	mu         sync.Mutex

	// OnLocation receives location fixes pushed by a device over the socket.
	OnLocation func(latitude, longitude float64) error
}

// Envelope is the frame pushed to subscribers.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscription struct {
	conn   *websocket.Conn
	topics []string
}

// Message struct for incoming WebSocket messages
type Message struct {
	Type      string   `json:"type"`
	Topics    []string `json:"topics,omitempty"`
	Latitude  float64  `json:"latitude,omitempty"`
	Longitude float64  `json:"longitude,omitempty"`
}
