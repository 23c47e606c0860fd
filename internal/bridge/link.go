package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNoExtractor = errors.New("no extractor connected")
	// ErrAuth is returned when the extractor rejects a command because the
	// remote session is not authenticated.
	ErrAuth       = errors.New("extractor not authenticated")
	ErrAckTimeout = errors.New("extractor did not acknowledge")
)

// Command is sent to the extractor.
type Command struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Step   int    `json:"step"`
	Target string `json:"target,omitempty"`
}

const (
	CommandNavigate        = "navigate"
	CommandStartExtraction = "start_extraction"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the endpoint is token protected
	},
}

// Link is the server side of the extractor websocket. Inbound messages
// other than acks go to sink; commands wait for the matching ack.
type Link struct {
	sink       func([]byte)
	logger     *zap.Logger
	ackTimeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	pending map[string]chan Envelope
	seq     atomic.Uint64
}

func NewLink(sink func([]byte), logger *zap.Logger, ackTimeout time.Duration) *Link {
	return &Link{
		sink:       sink,
		logger:     logger.Named("link"),
		ackTimeout: ackTimeout,
		pending:    make(map[string]chan Envelope),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
// A new extractor replaces the previous one.
func (l *Link) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	l.Serve(ws)
}

// Serve reads from ws until it fails.
func (l *Link) Serve(ws *websocket.Conn) {
	l.mu.Lock()
	prev := l.conn
	l.conn = ws
	l.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
		l.logger.Info("link: extractor replaced")
	}
	l.logger.Info("link: extractor connected", zap.String("remote", ws.RemoteAddr().String()))

	for {
		_, b, err := ws.ReadMessage()
		if err != nil {
			break
		}
		l.receive(b)
	}

	l.mu.Lock()
	if l.conn == ws {
		l.conn = nil
	}
	l.mu.Unlock()
	_ = ws.Close()
	l.logger.Info("link: extractor disconnected")
}

func (l *Link) receive(b []byte) {
	var head struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(b, &head); err == nil && head.Type == TypeAck {
		env, _ := Parse(b)
		l.mu.Lock()
		ch, ok := l.pending[head.ID]
		delete(l.pending, head.ID)
		l.mu.Unlock()
		if ok {
			ch <- env
		}
		return
	}
	l.sink(b)
}

// Connected reports whether an extractor is attached.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Navigate asks the extractor to open target for step.
func (l *Link) Navigate(ctx context.Context, step int, target string) error {
	return l.send(ctx, Command{Type: CommandNavigate, Step: step, Target: target})
}

// StartExtraction asks the extractor to begin extracting step.
func (l *Link) StartExtraction(ctx context.Context, step int) error {
	return l.send(ctx, Command{Type: CommandStartExtraction, Step: step})
}

func (l *Link) send(ctx context.Context, cmd Command) error {
	l.mu.Lock()
	ws := l.conn
	if ws == nil {
		l.mu.Unlock()
		return ErrNoExtractor
	}
	cmd.ID = strconv.FormatUint(l.seq.Add(1), 10)
	ack := make(chan Envelope, 1)
	l.pending[cmd.ID] = ack
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.pending, cmd.ID)
		l.mu.Unlock()
	}()

	l.writeMu.Lock()
	_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	err := ws.WriteJSON(cmd)
	l.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}

	timer := time.NewTimer(l.ackTimeout)
	defer timer.Stop()
	select {
	case env := <-ack:
		switch {
		case env.OK:
			return nil
		case env.Code == "auth":
			return fmt.Errorf("%s step %d: %w", cmd.Type, cmd.Step, ErrAuth)
		}
		return fmt.Errorf("%s step %d rejected: %s", cmd.Type, cmd.Step, env.Message)
	case <-timer.C:
		return fmt.Errorf("%s step %d: %w", cmd.Type, cmd.Step, ErrAckTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
