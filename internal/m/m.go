// Package m glues mcmp/mcfg/mrun/mlog together the way cmd/redikeep-server
// needs: a root Component sourced from the CLI and environment, a
// "log-level" parameter wired into the root Logger, and Init/Exec/Shutdown
// helpers that fail the process loudly on setup errors.
package m

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redikeep/redikeep/internal/mcfg"
	"github.com/redikeep/redikeep/internal/mcmp"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/mrun"
)

type cmpKey int

const cmpKeyCfgSrc cmpKey = iota

// RootComponent returns a Component suitable as the root of redikeep-server:
// parameters are sourced from the environment first, then CLI flags
// (flags win on conflict), and a "log-level" parameter controls the root
// Logger's verbosity once Init runs.
func RootComponent() *mcmp.Component {
	cmp := new(mcmp.Component)

	cmp.SetValue(cmpKeyCfgSrc, mcfg.Source(mcfg.MultiSource{
		mcfg.SourceEnv{Prefix: "REDIKEEP"},
		mcfg.SourceCLI{Args: os.Args[1:]},
	}))

	logger := mlog.NewLogger()
	mlog.SetLogger(cmp, logger)

	logLevelStr := mcfg.String(cmp, "log-level",
		mcfg.ParamDefaultString("info"),
		mcfg.ParamUsage("Maximum log level which will be printed (debug, info, warn, error)."))

	mrun.InitHook(cmp, func(context.Context) error {
		src, _ := cmp.Value(cmpKeyCfgSrc).(mcfg.Source)
		if src == nil {
			return merr.New("root component has no configuration source", nil)
		}
		if err := mcfg.Populate(cmp, src); err != nil {
			return err
		}

		lvl := levelFromString(*logLevelStr)
		if lvl == nil {
			return merr.New("invalid log level", mctx.Annotated("log-level", *logLevelStr))
		}
		logger.SetMaxLevel(*lvl)
		return nil
	})

	return cmp
}

func levelFromString(s string) *mlog.Level {
	switch s {
	case "debug":
		return &mlog.LevelDebug
	case "info":
		return &mlog.LevelInfo
	case "warn":
		return &mlog.LevelWarn
	case "error":
		return &mlog.LevelError
	default:
		return nil
	}
}

// MustInit triggers Init on cmp, exiting the process via the root Logger's
// Fatal if it fails.
func MustInit(cmp *mcmp.Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mrun.Init(ctx, cmp); err != nil {
		mlog.From(cmp).Fatal("initialization failed", errAnn(err))
	}
}

// MustShutdown triggers Shutdown on cmp, exiting the process via the root
// Logger's Fatal if it fails.
func MustShutdown(cmp *mcmp.Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mrun.Shutdown(ctx, cmp); err != nil {
		mlog.From(cmp).Fatal("shutdown failed", errAnn(err))
	}
}

func errAnn(err error) mctx.Annotation {
	return mctx.Annotated("err", err.Error())
}

// Exec calls MustInit on cmp, blocks until SIGINT/SIGTERM, then calls
// MustShutdown and exits the process.
func Exec(cmp *mcmp.Component) {
	MustInit(cmp)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	mlog.From(cmp).Info("signal received, shutting down")

	MustShutdown(cmp)
	os.Exit(0)
}
