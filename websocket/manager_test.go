package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/pipeline"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

func startManager(t *testing.T, running func() bool) (*Manager, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	manager := NewManager(utils.NewNopLogger(), running)
	go manager.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(manager.HandleConnections))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return manager, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestConnectSendsGreeting(t *testing.T) {
	_, server := startManager(t, func() bool { return true })
	conn := dial(t, server)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeConnected, msg.Type)
	assert.NotEmpty(t, msg.ClientID)
	assert.True(t, msg.Running)
}

func TestPublishReachesEveryClient(t *testing.T) {
	manager, server := startManager(t, nil)
	first := dial(t, server)
	second := dial(t, server)
	readMessage(t, first)
	readMessage(t, second)

	require.Eventually(t, func() bool { return manager.ClientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	manager.Publish(pipeline.Event{
		Type:  pipeline.EventTableSynced,
		RunID: "run-1",
		Mode:  pipeline.Incremental,
		Table: &models.TableStats{Table: "actor", Extracted: 2, Inserted: 1, Updated: 1},
	})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeEvent, msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, pipeline.EventTableSynced, msg.Event.Type)
		assert.Equal(t, "run-1", msg.Event.RunID)
		require.NotNil(t, msg.Event.Table)
		assert.Equal(t, 1, msg.Event.Table.Updated)
	}
}

func TestPingIsAnswered(t *testing.T) {
	_, server := startManager(t, nil)
	conn := dial(t, server)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, TypePong, readMessage(t, conn).Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	manager, server := startManager(t, nil)
	conn := dial(t, server)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return manager.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestPublishDoesNotBlockWithoutClients(t *testing.T) {
	manager := NewManager(utils.NewNopLogger(), nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBufferSize+10; i++ {
			manager.Publish(pipeline.Event{Type: pipeline.EventRunStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked")
	}
}
