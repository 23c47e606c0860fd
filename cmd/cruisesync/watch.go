package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cruisesync/internal/feed"
	"cruisesync/internal/session"
)

// watcher prints feed events, showing each log line once across snapshots.
type watcher struct {
	out      io.Writer
	raw      bool
	session  string
	status   session.Status
	lastSeen time.Time
}

func (w *watcher) line(b []byte) {
	if w.raw {
		fmt.Fprintln(w.out, string(b))
		return
	}
	var ev feed.Event
	if err := json.Unmarshal(b, &ev); err != nil || ev.Session == nil {
		// not JSON or nothing to show
		if err != nil {
			fmt.Fprintln(w.out, string(b))
		}
		return
	}

	s := ev.Session
	if s.ID != w.session {
		w.session = s.ID
		w.status = ""
		fmt.Fprintf(w.out, "%s %s\n", bold("session"), s.ID)
	}
	for _, e := range s.Logs {
		if e.Time.After(w.lastSeen) {
			renderLog(w.out, e)
		}
	}
	if n := len(s.Logs); n > 0 && s.Logs[n-1].Time.After(w.lastSeen) {
		w.lastSeen = s.Logs[n-1].Time
	}
	if s.Status != w.status {
		w.status = s.Status
		fmt.Fprintf(w.out, "%s %s\n", bold("status"), statusText(s.Status))
	}
}

func (w *watcher) follow(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		w.line(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		addr string
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the observer feed of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := &watcher{out: cmd.OutOrStdout(), raw: raw}
			for {
				if err := w.follow(ctx, addr); err != nil && ctx.Err() == nil {
					a.logger.Warn("watch: disconnected", zap.Error(err))
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second): // auto reconnect
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9090", "observer feed address")
	cmd.Flags().BoolVar(&raw, "raw", false, "print events as received")
	return cmd
}
