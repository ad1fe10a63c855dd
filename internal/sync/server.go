package sync

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/illarion/passvault/internal/codec"
)

// ServerConfig contains server configuration.
type ServerConfig struct {
	Logger *slog.Logger
}

// Server hands out one encoded document per connection.
type Server struct {
	payload []byte
	logger  *slog.Logger
}

// NewServer creates a server for doc. The document is serialized once here
// and the same bytes are sent to every client.
func NewServer(doc *codec.Document, cfg ServerConfig) (*Server, error) {
	data, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		payload: append(data, '\n'),
		logger:  logger,
	}, nil
}

// Payload returns the newline-terminated message sent to clients
func (s *Server) Payload() []byte {
	return s.payload
}

// ListenAndServe binds a TCP listener on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &NetworkError{Op: "listen", Addr: addr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln one at a time: each client receives the
// payload and is disconnected before the next connection is accepted.
// Serve returns nil once ctx is cancelled and closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer ln.Close()

	addr := ln.Addr().String()
	s.logger.Info("serving vault", "addr", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("server stopped", "addr", addr)
				return nil
			}
			return &NetworkError{Op: "accept", Addr: addr, Err: err}
		}
		s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	if _, err := conn.Write(s.payload); err != nil {
		s.logger.Warn("failed to send document", "remote", remote, "error", err)
		return
	}
	s.logger.Info("sent document", "remote", remote, "bytes", len(s.payload))
}
