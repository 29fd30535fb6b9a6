// websocket/types.go
package websocket

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/sakila_analytics/ETL/pipeline"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// Message types sent to clients
const (
	TypeConnected = "connected"
	TypeEvent     = "event"
	TypePong      = "pong"
)

// Message is the envelope of every frame exchanged over the socket
type Message struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	Running  bool            `json:"running,omitempty"`
	Event    *pipeline.Event `json:"event,omitempty"`
}

// Client is one connected monitor
type Client struct {
	ID     string
	Socket *websocket.Conn
	Send   chan []byte
}

// reply is a message addressed to one client
type reply struct {
	client *Client
	data   []byte
}

// Manager fans run events out to every connected client
type Manager struct {
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	replies    chan reply
	done       chan struct{}
	stopOnce   sync.Once

	count   atomic.Int32
	running func() bool
	logger  *utils.ETLLogger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
