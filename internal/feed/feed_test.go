package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cruisesync/internal/session"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()
	return hub
}

func readEvent(t *testing.T, r *bufio.Reader) Event {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(line, &ev))
	return ev
}

func TestServer_TCPObserver(t *testing.T) {
	hub := startHub(t)
	hub.Publish(session.Snapshot{ID: "s1", Status: session.StatusIdle})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("", hub, zap.NewNop()).Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(conn)

	welcome := readEvent(t, r)
	assert.Equal(t, EventWelcome, welcome.Type)
	assert.Equal(t, "tcp", welcome.Transport)
	require.NotNil(t, welcome.Session)
	assert.Equal(t, "s1", welcome.Session.ID)

	hub.Publish(session.Snapshot{ID: "s1", Status: session.RunningStep(1), Step: 1})
	ev := readEvent(t, r)
	for ev.Type == EventSnapshot && ev.Session.Status == session.StatusIdle {
		// the first publish may still be in flight
		ev = readEvent(t, r)
	}
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, session.RunningStep(1), ev.Session.Status)
	assert.Equal(t, 1, hub.Stats().TCPClients)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWSHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	r := gin.New()
	r.GET("/feed/ws", WSHandler(hub))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/feed/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, EventWelcome, ev.Type)
	assert.Equal(t, "websocket", ev.Transport)
	assert.Nil(t, ev.Session)

	hub.Publish(session.Snapshot{ID: "s2", Status: session.StatusAwaitingConfirmation, HasPreview: true})
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.True(t, ev.Session.HasPreview)
	assert.Equal(t, 1, hub.Stats().WSClients)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(zap.NewNop()) // not running: nothing drains notify
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(session.Snapshot{Step: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
	assert.Equal(t, 99, hub.latest.Load().Step)
}
