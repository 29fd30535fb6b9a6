// websocket/manager.go
package websocket

import (
	"context"
	"encoding/json"

	"github.com/LilVoxy/sakila_analytics/ETL/pipeline"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// NewManager creates a new Manager. running reports whether a sync run is
// active and is sent to clients on connect; it may be nil.
func NewManager(logger *utils.ETLLogger, running func() bool) *Manager {
	if running == nil {
		running = func() bool { return false }
	}
	return &Manager{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan reply),
		done:       make(chan struct{}),
		running:    running,
		logger:     logger,
	}
}

// Run owns the client set until ctx is done, then disconnects every client
func (manager *Manager) Run(ctx context.Context) {
	defer manager.stop()

	for {
		select {
		case client := <-manager.register:
			manager.clients[client.ID] = client
			manager.count.Store(int32(len(manager.clients)))
			manager.logger.Debug("Monitor %s connected", client.ID)

		case client := <-manager.unregister:
			if _, ok := manager.clients[client.ID]; ok {
				manager.remove(client)
				manager.logger.Debug("Monitor %s disconnected", client.ID)
			}

		case message := <-manager.broadcast:
			for _, client := range manager.clients {
				manager.send(client, message)
			}

		case r := <-manager.replies:
			if current, ok := manager.clients[r.client.ID]; ok && current == r.client {
				manager.send(r.client, r.data)
			}

		case <-ctx.Done():
			for _, client := range manager.clients {
				manager.remove(client)
			}
			return
		}
	}
}

// send must only be called from Run
func (manager *Manager) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		manager.logger.Warn("Dropping slow monitor %s", client.ID)
		manager.remove(client)
	}
}

func (manager *Manager) remove(client *Client) {
	delete(manager.clients, client.ID)
	close(client.Send)
	manager.count.Store(int32(len(manager.clients)))
}

func (manager *Manager) stop() {
	manager.stopOnce.Do(func() { close(manager.done) })
}

// reply queues a message for a single client through Run
func (manager *Manager) reply(client *Client, data []byte) {
	select {
	case manager.replies <- reply{client: client, data: data}:
	case <-manager.done:
	}
}

// ClientCount returns the number of registered clients
func (manager *Manager) ClientCount() int {
	return int(manager.count.Load())
}

// Publish queues a run event for every client. It never blocks; events are
// dropped when the queue is full or the manager has stopped.
func (manager *Manager) Publish(event pipeline.Event) {
	data, err := json.Marshal(Message{Type: TypeEvent, Event: &event})
	if err != nil {
		manager.logger.Error("Failed to encode %s event: %v", event.Type, err)
		return
	}

	select {
	case <-manager.done:
	case manager.broadcast <- data:
	default:
		manager.logger.Warn("Event queue full, dropping %s event of run %s", event.Type, event.RunID)
	}
}

var _ pipeline.EventSink = (*Manager)(nil)
