package feed

import (
	"bufio"
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
)

// Server accepts TCP observers. Each gets newline-delimited JSON events.
type Server struct {
	Addr   string
	Hub    *Hub
	logger *zap.Logger
}

func NewServer(addr string, hub *Hub, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, logger: logger.Named("feed-tcp")}
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("feed: listening", zap.String("addr", ln.Addr().String()))
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("feed: accept", zap.Error(err))
			continue
		}

		s.Hub.Add(conn)
		s.logger.Debug("feed: observer connected", zap.Stringer("remote", conn.RemoteAddr()))

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.logger.Debug("feed: observer disconnected", zap.Stringer("remote", c.RemoteAddr()))
			}()

			sc := bufio.NewScanner(c)
			for sc.Scan() {
				// observers don't talk; reading only detects the disconnect
			}
		}(conn)
	}
}
