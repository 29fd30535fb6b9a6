// websocket/read_pump.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// readPump keeps the connection alive and answers client pings. The feed is
// one-way, so anything else is ignored.
func (c *Client) readPump(manager *Manager) {
	defer func() {
		select {
		case manager.unregister <- c:
		case <-manager.done:
		}
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(maxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Warn("Monitor %s read error: %v", c.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			manager.logger.Debug("Ignoring malformed frame from %s: %v", c.ID, err)
			continue
		}
		if msg.Type != "ping" {
			continue
		}

		pong, _ := json.Marshal(Message{Type: TypePong})
		manager.reply(c, pong)
	}
}
