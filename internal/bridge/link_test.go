package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dialLink connects a fake extractor that answers every command with code
// and forwards the commands on the returned channel.
func dialLink(t *testing.T, l *Link, code string) (*websocket.Conn, chan Command) {
	t.Helper()
	srv := httptest.NewServer(l)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	cmds := make(chan Command, 8)
	go func() {
		for {
			var cmd Command
			if err := ws.ReadJSON(&cmd); err != nil {
				return
			}
			cmds <- cmd
			ack := map[string]any{"type": "ack", "id": cmd.ID, "ok": code == "", "code": code, "message": "nope"}
			if err := ws.WriteJSON(ack); err != nil {
				return
			}
		}
	}()

	require.Eventually(t, l.Connected, time.Second, 10*time.Millisecond)
	return ws, cmds
}

func TestLink_NoExtractor(t *testing.T) {
	l := NewLink(func([]byte) {}, zap.NewNop(), time.Second)
	assert.ErrorIs(t, l.Navigate(context.Background(), 1, "offers"), ErrNoExtractor)
}

func TestLink_CommandAcked(t *testing.T) {
	l := NewLink(func([]byte) {}, zap.NewNop(), time.Second)
	_, cmds := dialLink(t, l, "")

	require.NoError(t, l.Navigate(context.Background(), 1, "/club-royale/offers"))
	cmd := <-cmds
	assert.Equal(t, Command{ID: cmd.ID, Type: CommandNavigate, Step: 1, Target: "/club-royale/offers"}, cmd)

	require.NoError(t, l.StartExtraction(context.Background(), 1))
	assert.Equal(t, CommandStartExtraction, (<-cmds).Type)
}

func TestLink_AuthRejection(t *testing.T) {
	l := NewLink(func([]byte) {}, zap.NewNop(), time.Second)
	dialLink(t, l, "auth")

	err := l.Navigate(context.Background(), 2, "/bookings")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestLink_OtherRejection(t *testing.T) {
	l := NewLink(func([]byte) {}, zap.NewNop(), time.Second)
	dialLink(t, l, "busy")

	err := l.Navigate(context.Background(), 2, "/bookings")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "nope")
}

func TestLink_AckTimeout(t *testing.T) {
	l := NewLink(func([]byte) {}, zap.NewNop(), 50*time.Millisecond)
	srv := httptest.NewServer(l)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	require.Eventually(t, l.Connected, time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, l.StartExtraction(context.Background(), 3), ErrAckTimeout)
}

func TestLink_ForwardsMessagesToSink(t *testing.T) {
	got := make(chan []byte, 1)
	l := NewLink(func(b []byte) { got <- b }, zap.NewNop(), time.Second)
	ws, _ := dialLink(t, l, "")

	msg, _ := json.Marshal(map[string]any{"type": "log", "message": "hello"})
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, msg))

	select {
	case b := <-got:
		assert.JSONEq(t, string(msg), string(b))
	case <-time.After(time.Second):
		t.Fatal("message not forwarded")
	}
}
