// websocket/constants.go
package websocket

import (
	"time"
)

const (
	// Time allowed to write a message to the client
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the client
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send pings, so keep the limit small
	maxMessageSize = 4 * 1024

	// Outgoing messages buffered per client before it is dropped as slow
	sendBufferSize = 256

	// Events buffered by the manager before Publish starts dropping
	broadcastBufferSize = 1024
)
