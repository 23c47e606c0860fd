package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cruisesync/internal/bridge"
)

// script is a recorded extractor session: envelopes grouped by step. Step 0
// holds what is sent as soon as the link is up, typically auth_status.
type script struct {
	byStep map[int][][]byte
}

func loadScript(r io.Reader) (*script, error) {
	s := &script{byStep: map[int][][]byte{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}
		env, err := bridge.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if env.Type == bridge.TypeAck {
			continue
		}
		s.byStep[env.Step] = append(s.byStep[env.Step], append([]byte(nil), b...))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// replayer plays a script over an extractor connection, acknowledging
// every command.
type replayer struct {
	ws     *websocket.Conn
	script *script
	delay  time.Duration
	logger *zap.Logger

	writeMu sync.Mutex
}

func (r *replayer) write(b []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.ws.WriteMessage(websocket.TextMessage, b)
}

func (r *replayer) play(ctx context.Context, step int) error {
	for _, b := range r.script.byStep[step] {
		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := r.write(b); err != nil {
			return err
		}
	}
	return nil
}

// run sends step 0, then answers commands until the connection or ctx ends.
func (r *replayer) run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = r.ws.Close()
	}()

	if err := r.play(ctx, 0); err != nil {
		return err
	}
	for {
		var cmd bridge.Command
		if err := r.ws.ReadJSON(&cmd); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.logger.Info("replay: command", zap.String("type", cmd.Type), zap.Int("step", cmd.Step), zap.String("target", cmd.Target))

		ack, _ := json.Marshal(bridge.Envelope{Type: bridge.TypeAck, ID: cmd.ID, OK: true})
		if err := r.write(ack); err != nil {
			return err
		}
		if cmd.Type == bridge.CommandStartExtraction {
			go func(step int) {
				if err := r.play(ctx, step); err != nil {
					r.logger.Warn("replay: step aborted", zap.Int("step", step), zap.Error(err))
				}
			}(cmd.Step)
		}
	}
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		file   string
		server string
		token  string
		delay  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Act as the extractor by replaying a recorded JSONL session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			sc, err := loadScript(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("load %s: %w", file, err)
			}

			if token == "" {
				token = os.Getenv("CRUISESYNC_EXTRACTOR_TOKEN")
			}
			u, err := url.Parse(strings.TrimRight(server, "/") + "/extractor/ws")
			if err != nil {
				return err
			}
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()

			ws, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), u.String(), nil)
			if err != nil {
				return fmt.Errorf("dial extractor link: %w", err)
			}
			a.logger.Info("replay: connected", zap.String("server", server), zap.String("file", file))

			r := &replayer{ws: ws, script: sc, delay: delay, logger: a.logger.Named("replay")}
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "recorded session (one envelope per line)")
	cmd.Flags().StringVar(&server, "server", "ws://localhost:8080", "server websocket base URL")
	cmd.Flags().StringVar(&token, "token", "", "extractor token (default: $CRUISESYNC_EXTRACTOR_TOKEN)")
	cmd.Flags().DurationVar(&delay, "delay", 50*time.Millisecond, "pause between replayed messages")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
