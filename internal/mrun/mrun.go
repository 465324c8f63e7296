// Package mrun provides lifecycle hooks scoped to an mcmp.Component tree.
// InitHook registers work to run when the process starts (opening listeners,
// loading an RDB file, starting background goroutines); ShutdownHook
// registers work to run as the process exits. Init triggers every hook
// registered on a Component or its descendants depth-first: a Component's
// own hooks, in registration order, before those of its children. Shutdown
// runs its hooks in the exact reverse of that order.
package mrun

import (
	"context"
	"errors"

	"github.com/redikeep/redikeep/internal/mcmp"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
)

// Hook is a function registered via InitHook or ShutdownHook.
type Hook func(context.Context) error

type hookKind int

const (
	initKind hookKind = iota
	shutdownKind
)

type hookEntry struct {
	kind hookKind
	hook Hook
}

type hooksKey int

func hooksOf(cmp *mcmp.Component) []hookEntry {
	hooks, _ := cmp.Value(hooksKey(0)).([]hookEntry)
	return hooks
}

func addHook(cmp *mcmp.Component, kind hookKind, hook Hook) {
	hooks := hooksOf(cmp)
	hooks = append(hooks, hookEntry{kind: kind, hook: hook})
	cmp.SetValue(hooksKey(0), hooks)
}

// InitHook registers hook to run when Init is called on cmp or one of its
// ancestors.
func InitHook(cmp *mcmp.Component, hook Hook) {
	addHook(cmp, initKind, hook)
}

// ShutdownHook registers hook to run when Shutdown is called on cmp or one
// of its ancestors.
func ShutdownHook(cmp *mcmp.Component, hook Hook) {
	addHook(cmp, shutdownKind, hook)
}

func collect(cmp *mcmp.Component, kind hookKind) []Hook {
	var hooks []Hook
	var visit func(*mcmp.Component)
	visit = func(c *mcmp.Component) {
		for _, e := range hooksOf(c) {
			if e.kind == kind {
				hooks = append(hooks, e.hook)
			}
		}
		for _, child := range c.Children() {
			visit(child)
		}
	}
	visit(cmp)
	return hooks
}

// Init runs every InitHook registered on cmp or its descendants, in the
// depth-first order described above, stopping and returning the first error
// encountered.
func Init(ctx context.Context, cmp *mcmp.Component) error {
	for _, hook := range collect(cmp, initKind) {
		if err := hook(ctx); err != nil {
			return merr.Wrap(err, mctx.Annotated("phase", "init"))
		}
	}
	return nil
}

// Shutdown runs every ShutdownHook registered on cmp or its descendants, in
// the reverse of Init's order, collecting every error encountered (joined
// with errors.Join and wrapped) rather than stopping at the first.
func Shutdown(ctx context.Context, cmp *mcmp.Component) error {
	hooks := collect(cmp, shutdownKind)

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return merr.Wrap(errors.Join(errs...), mctx.Annotated("phase", "shutdown"))
}
