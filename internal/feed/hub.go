// Package feed broadcasts session snapshots to observers over TCP and
// websocket.
package feed

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cruisesync/internal/session"
)

const writeTimeout = 2 * time.Second

type client interface {
	send(b []byte) error
	close()
}

type tcpClient struct{ conn net.Conn }

func (c tcpClient) send(b []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.conn.Write(b)
	return err
}

func (c tcpClient) close() { _ = c.conn.Close() }

type wsClient struct{ ws *websocket.Conn }

func (c wsClient) send(b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

func (c wsClient) close() { _ = c.ws.Close() }

// Hub fans snapshots out to connected observers. Publish never blocks:
// snapshots published faster than they can be sent are coalesced and
// observers see the latest one.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[client]string

	latest atomic.Pointer[session.Snapshot]
	notify chan struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("feed"),
		clients: make(map[client]string),
		notify:  make(chan struct{}, 1),
	}
}

// Publish implements orchestrator.Publisher.
func (h *Hub) Publish(snap session.Snapshot) {
	h.latest.Store(&snap)
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run broadcasts published snapshots until ctx is done, then disconnects
// every observer.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-h.notify:
			h.BroadcastJSON(Event{Type: EventSnapshot, Session: h.latest.Load(), At: time.Now().UTC()})
		}
	}
}

func (h *Hub) Add(conn net.Conn)           { h.join(tcpClient{conn}, "tcp") }
func (h *Hub) Remove(conn net.Conn)        { h.leave(tcpClient{conn}) }
func (h *Hub) AddWS(ws *websocket.Conn)    { h.join(wsClient{ws}, "websocket") }
func (h *Hub) RemoveWS(ws *websocket.Conn) { h.leave(wsClient{ws}) }

// join registers c and greets it with the current snapshot. Both happen
// under the lock so the greeting cannot interleave with a broadcast.
func (h *Hub) join(c client, transport string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = transport

	b, err := encode(Event{
		Type:      EventWelcome,
		Transport: transport,
		Clients:   len(h.clients),
		Session:   h.latest.Load(),
		At:        time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := c.send(b); err != nil {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) leave(c client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := encode(v)
	if err != nil {
		h.logger.Error("feed: encode", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c, transport := range h.clients {
		if err := c.send(b); err != nil {
			h.logger.Debug("feed: dropping observer", zap.String("transport", transport), zap.Error(err))
			c.close()
			delete(h.clients, c)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	var s Stats
	for _, transport := range h.clients {
		if transport == "tcp" {
			s.TCPClients++
		} else {
			s.WSClients++
		}
	}
	return s
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
