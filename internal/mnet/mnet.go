// Package mnet wires a TCP net.Listener to a Component's lifecycle: the
// listen address is configurable via mcfg, the socket is opened on Init and
// closed on Shutdown, and every accept/close is logged via mlog.
package mnet

import (
	"context"
	"net"

	"github.com/redikeep/redikeep/internal/mcfg"
	"github.com/redikeep/redikeep/internal/mcmp"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/mrun"
)

// Listener wraps a net.Listener, logging every accepted connection. Close
// itself does not log; InstListener's shutdown hook logs before closing.
type Listener struct {
	net.Listener
	cmp *mcmp.Component
}

type listenerOpts struct {
	defaultAddr     string
	closeOnShutdown bool
}

// ListenerOpt adjusts the behavior of InstListener.
type ListenerOpt func(*listenerOpts)

// ListenerDefaultAddr sets the default listen address, still overridable via
// mcfg. Defaults to ":6379".
func ListenerDefaultAddr(addr string) ListenerOpt {
	return func(o *listenerOpts) { o.defaultAddr = addr }
}

// ListenerCloseOnShutdown controls whether the Listener is closed when
// Shutdown is triggered on its Component. Defaults to true.
func ListenerCloseOnShutdown(close bool) ListenerOpt {
	return func(o *listenerOpts) { o.closeOnShutdown = close }
}

// InstListener registers an mcfg Param for the listen address and an mrun
// InitHook/ShutdownHook pair which open and close the *Listener. The
// returned Listener is not usable until Init has been triggered on cmp (or
// an ancestor of it).
func InstListener(cmp *mcmp.Component, opts ...ListenerOpt) *Listener {
	lOpts := listenerOpts{defaultAddr: ":6379", closeOnShutdown: true}
	for _, opt := range opts {
		opt(&lOpts)
	}

	cmp = cmp.Child("net")
	l := &Listener{cmp: cmp}

	addr := mcfg.String(cmp, "listen-addr",
		mcfg.ParamDefaultString(lOpts.defaultAddr),
		mcfg.ParamUsage("TCP address to listen on in format [host]:port"),
	)

	mrun.InitHook(cmp, func(context.Context) error {
		var err error
		l.Listener, err = net.Listen("tcp", *addr)
		if err != nil {
			return merr.Wrap(err, mctx.Annotated("addr", *addr))
		}
		mlog.From(cmp).Info("listening", mctx.Annotated("addr", l.Listener.Addr().String()))
		return nil
	})

	mrun.ShutdownHook(cmp, func(context.Context) error {
		if !lOpts.closeOnShutdown {
			return nil
		}
		mlog.From(cmp).Info("closing listener")
		return l.Close()
	})

	return l
}

// Wrap returns a Listener around an already-opened net.Listener, logging
// through cmp. Unlike InstListener it does not register an mcfg Param or
// mrun hooks; use it when the listen address is sourced from a parameter
// owned by the caller (e.g. redikeep-server's single "--port" flag) rather
// than mnet's own "listen-addr" Param.
func Wrap(cmp *mcmp.Component, l net.Listener) *Listener {
	return &Listener{Listener: l, cmp: cmp}
}

// Accept wraps the underlying net.Listener's Accept, logging the accepted
// connection's remote address.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return conn, err
	}
	mlog.From(l.cmp).Debug("connection accepted",
		mctx.Annotated("remoteAddr", conn.RemoteAddr().String()))
	return conn, nil
}

// Close wraps the underlying net.Listener's Close.
func (l *Listener) Close() error {
	return l.Listener.Close()
}
