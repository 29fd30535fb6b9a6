// websocket/connection_handler.go
package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// HandleConnections upgrades a monitor connection and subscribes it to run events
func (manager *Manager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		Socket: conn,
		Send:   make(chan []byte, sendBufferSize),
	}

	hello, err := json.Marshal(Message{Type: TypeConnected, ClientID: client.ID, Running: manager.running()})
	if err == nil {
		client.Send <- hello
	}

	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}
	manager.logger.Info("Monitor %s connected from %s", client.ID, r.RemoteAddr)

	go client.writePump()
	go client.readPump(manager)
}
