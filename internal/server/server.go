// Package server runs language server sessions over message connections.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/CWBudde/go-ada-lsp/internal/completion"
	"github.com/CWBudde/go-ada-lsp/internal/jsonrpc"
	"github.com/CWBudde/go-ada-lsp/internal/session"
	"github.com/CWBudde/go-ada-lsp/internal/symbols"
	"github.com/CWBudde/go-ada-lsp/internal/transport"
)

var log = commonlog.GetLogger("ada-lsp.server")

// Server holds the state shared by all sessions.
type Server struct {
	// engine and its table are shared by every session; the table serializes its own access
	engine *completion.Engine

	// opts are handed to each new session
	opts session.Options
}

// New creates a server answering completions from table.
func New(table *symbols.Table, opts session.Options) *Server {
	if table == nil {
		table = symbols.NewTable()
	}

	return &Server{
		engine: completion.NewEngine(table),
		opts:   opts,
	}
}

// Symbols returns the shared symbol table.
func (s *Server) Symbols() *symbols.Table {
	return s.engine.Table()
}

// Options returns the options given to new sessions.
func (s *Server) Options() session.Options {
	return s.opts
}

// NewSession creates an uninitialized session bound to the shared table.
func (s *Server) NewSession() *session.Session {
	return session.New(s.engine, s.opts)
}

// ServeConn runs one session on conn until the client sends exit, the stream
// ends, or ctx is cancelled. Messages are handled strictly in arrival order.
// ServeConn closes conn before returning.
func (s *Server) ServeConn(ctx context.Context, conn transport.Conn) (session.ExitStatus, error) {
	sess := s.NewSession()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	defer func() {
		if stop() {
			_ = conn.Close()
		}
	}()

	log.Infof("[%s] session started", sess.ID())

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			return sess.ExitStatus(), s.readFailed(ctx, sess, conn, err)
		}

		response, terminated := sess.Handle(msg)
		if response != nil {
			if err := conn.WriteMessage(response); err != nil {
				return sess.ExitStatus(), fmt.Errorf("session %s: %w", sess.ID(), err)
			}
		}

		if terminated {
			log.Infof("[%s] session ended (%s)", sess.ID(), sess.ExitStatus())
			return sess.ExitStatus(), nil
		}
	}
}

func (s *Server) readFailed(ctx context.Context, sess *session.Session, conn transport.Conn, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		log.Infof("[%s] connection closed by client in %s state", sess.ID(), sess.State())
		return nil

	case ctx.Err() != nil:
		log.Infof("[%s] connection closed on server stop", sess.ID())
		return nil

	case errors.Is(err, transport.ErrCorruptStream):
		log.Errorf("[%s] %v", sess.ID(), err)

		data, encErr := jsonrpc.EncodeError(jsonrpc.NewError(nil, jsonrpc.CodeParseError, "%v", err))
		if encErr == nil {
			_ = conn.WriteMessage(data)
		}

		return fmt.Errorf("session %s: %w", sess.ID(), err)

	default:
		return fmt.Errorf("session %s: read message: %w", sess.ID(), err)
	}
}

// Serve accepts connections on ln and runs an isolated session for each one
// until ctx is cancelled. It closes ln and waits for open sessions to end
// before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener, framing transport.Framing) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	log.Infof("listening on %s (%s framing)", ln.Addr(), framing)

	var (
		group     errgroup.Group
		acceptErr error
	)

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				acceptErr = fmt.Errorf("accept: %w", err)
				cancel()
			}

			break
		}

		log.Debugf("accepted connection from %s", c.RemoteAddr())

		group.Go(func() error {
			status, err := s.ServeConn(ctx, transport.New(c, framing))
			if err != nil {
				log.Warningf("connection from %s: %v", c.RemoteAddr(), err)
			} else {
				log.Debugf("connection from %s finished (%s)", c.RemoteAddr(), status)
			}

			return nil
		})
	}

	_ = group.Wait()
	log.Info("server stopped")

	return acceptErr
}
