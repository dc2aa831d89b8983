package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kavyalok/auth"
	"kavyalok/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	verifier := auth.Static{
		"asha-token": {UID: "u1", Email: "asha@example.com"},
		"ravi-token": {UID: "u2", Email: "ravi@example.com"},
	}
	server := httptest.NewServer(Handler(hub, verifier))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)
	return conn
}

func TestHandlerRejectsBadTokens(t *testing.T) {
	_, server := startHub(t)
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	for _, suffix := range []string{"", "?token=bogus"} {
		_, resp, err := websocket.DefaultDialer.Dial(base+suffix, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestDeliverReachesOnlyTarget(t *testing.T) {
	hub, server := startHub(t)
	asha := dial(t, server, "asha-token")
	ravi := dial(t, server, "ravi-token")
	assert.Equal(t, 2, hub.Connected())

	n := models.NotificationView{
		Notification: models.Notification{Type: models.NotificationNewFollower, From: "ravi@example.com"},
		Message:      "started following you",
	}
	require.NoError(t, hub.Deliver(context.Background(), "asha@example.com", n))

	var got struct {
		Type    string                  `json:"type"`
		Payload models.NotificationView `json:"payload"`
	}
	require.NoError(t, asha.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, asha.ReadJSON(&got))
	assert.Equal(t, "notification", got.Type)
	assert.Equal(t, models.NotificationNewFollower, got.Payload.Type)
	assert.Equal(t, "started following you", got.Payload.Message)

	require.NoError(t, ravi.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := ravi.ReadMessage()
	assert.Error(t, err)
}

func TestPingPong(t *testing.T) {
	_, server := startHub(t)
	conn := dial(t, server, "asha-token")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)
}

func TestPublishAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	for i := 0; i < cap(hub.deliver); i++ {
		hub.deliver <- envelope{}
	}
	assert.Error(t, hub.Publish(context.Background(), "asha@example.com", Event{Type: "x"}))
	assert.Equal(t, 0, hub.Connected())
}
