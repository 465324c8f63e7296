// Package server wires a net.Listener to the command dispatcher: one
// goroutine per accepted connection, framing RESP requests off the wire and
// feeding them to command.Dispatcher.
package server

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/redikeep/redikeep/internal/command"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/resp"
)

// Server accepts client connections on a Listener and dispatches every
// framed request through Dispatcher.
type Server struct {
	Listener   net.Listener
	Dispatcher *command.Dispatcher
	Log        *mlog.Logger
}

// New returns a Server ready to Serve.
func New(l net.Listener, d *command.Dispatcher) *Server {
	log := d.Log
	if log == nil {
		log = mlog.Null
	}
	return &Server{Listener: l, Dispatcher: d, Log: log}
}

// Serve accepts connections until the Listener is closed, handling each on
// its own goroutine. It returns nil when the Listener's Close causes Accept
// to fail, and a non-nil error for any other accept failure.
func (s *Server) Serve() error {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// handleConn frames and dispatches requests from one client connection
// until it disconnects or a structural protocol error is hit. A blocked
// XREAD or pending replica registration parked under this connection's
// identity is cleaned up on the way out.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	ctx := &command.ConnCtx{ID: conn, Writer: conn}
	defer func() {
		if s.Dispatcher.Blocking != nil {
			s.Dispatcher.Blocking.Cancel(conn)
		}
		if ctx.ReplicaHandle != 0 && s.Dispatcher.Leader != nil {
			s.Dispatcher.Leader.RemoveReplica(ctx.ReplicaHandle)
		}
	}()

	s.Log.Debug("connection accepted", mctx.Annotated("remoteAddr", conn.RemoteAddr().String()))

	br := bufio.NewReader(conn)
	p := resp.NewParser()
	buf := make([]byte, 4096)

	for {
		for {
			args, raw, ok, err := p.Next()
			if err != nil {
				s.Log.WarnErr("malformed request", err, mctx.Annotated("remoteAddr", conn.RemoteAddr().String()))
				return
			}
			if !ok {
				break
			}
			if err := s.Dispatcher.Dispatch(ctx, args, raw); err != nil {
				s.Log.WarnErr("dispatch failed", err, mctx.Annotated("remoteAddr", conn.RemoteAddr().String()))
				return
			}
		}

		n, err := br.Read(buf)
		if err != nil {
			if err != io.EOF {
				s.Log.WarnErr("connection read failed", err, mctx.Annotated("remoteAddr", conn.RemoteAddr().String()))
			}
			return
		}
		p.Feed(buf[:n])
	}
}
