/*
redikeep-server is a Redis-wire-compatible in-memory data server: a RESP
command surface over strings and streams, an RDB bootstrap loader, and
single-leader replication (PSYNC/FULLRESYNC, WAIT, XREAD BLOCK).

Run as a leader:

	redikeep-server --port 6379 --dir /var/lib/redikeep --dbfilename dump.rdb

Run as a follower of the above:

	redikeep-server --port 6380 --replicaof-host 127.0.0.1 --replicaof-port 6379
*/
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/redikeep/redikeep/internal/blocking"
	"github.com/redikeep/redikeep/internal/command"
	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/m"
	"github.com/redikeep/redikeep/internal/mcfg"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/mnet"
	"github.com/redikeep/redikeep/internal/mrand"
	"github.com/redikeep/redikeep/internal/mrun"
	"github.com/redikeep/redikeep/internal/mtime"
	"github.com/redikeep/redikeep/internal/rdb"
	"github.com/redikeep/redikeep/internal/replication"
	"github.com/redikeep/redikeep/internal/server"
)

func main() {
	cmp := m.RootComponent()

	port := mcfg.Int(cmp, "port",
		mcfg.ParamDefaultInt(6379),
		mcfg.ParamUsage("TCP port to listen on."))
	dir := mcfg.String(cmp, "dir",
		mcfg.ParamDefaultString("."),
		mcfg.ParamUsage("Directory an RDB snapshot is loaded from at startup."))
	dbFilename := mcfg.String(cmp, "dbfilename",
		mcfg.ParamDefaultString("dump.rdb"),
		mcfg.ParamUsage("Filename, within --dir, of the RDB snapshot to load at startup."))
	replicaofHost := mcfg.String(cmp, "replicaof-host",
		mcfg.ParamUsage("Leader host to replicate from. Omit to run as a leader."))
	replicaofPort := mcfg.Int(cmp, "replicaof-port",
		mcfg.ParamUsage("Leader port to replicate from; used with --replicaof-host."))

	ks := keyspace.New(func() mtime.TS { return mtime.TSFromUnixMilli(time.Now().UnixMilli()) })
	blk := blocking.New(ks)
	d := command.New()
	d.KS = ks
	d.Blocking = blk
	d.Log = mlog.From(cmp)
	d.ReplID = mrand.Hex(40)

	var ln net.Listener
	var srv *server.Server

	mrun.InitHook(cmp, func(context.Context) error {
		d.Config.Dir = *dir
		d.Config.DBFilename = *dbFilename
		return nil
	})

	isFollower := false
	mrun.InitHook(cmp, func(context.Context) error {
		isFollower = *replicaofHost != ""

		if !isFollower {
			d.Leader = replication.NewLeader(d.ReplID, d.Log)
			return loadRDBIfPresent(*dir, *dbFilename, ks, d.Log)
		}
		return nil
	})

	mrun.InitHook(cmp, func(context.Context) error {
		raw, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
		if err != nil {
			return err
		}
		ln = mnet.Wrap(cmp.Child("net"), raw)
		mlog.From(cmp).Info("listening", mctx.Annotated("addr", ln.Addr().String()))
		srv = server.New(ln, d)
		go func() {
			if err := srv.Serve(); err != nil {
				mlog.From(cmp).WarnErr("server stopped", err)
			}
		}()
		return nil
	})

	mrun.InitHook(cmp, func(context.Context) error {
		if !isFollower {
			return nil
		}
		addr := fmt.Sprintf("%s:%d", *replicaofHost, *replicaofPort)
		go func() {
			err := server.RunFollower(addr, fmt.Sprintf("%d", *port), ks, d, d.Log)
			if err != nil {
				mlog.From(cmp).WarnErr("replication from master ended", err, mctx.Annotated("addr", addr))
			}
		}()
		return nil
	})

	mrun.ShutdownHook(cmp, func(context.Context) error {
		if ln == nil {
			return nil
		}
		mlog.From(cmp).Info("closing listener")
		return ln.Close()
	})

	m.Exec(cmp)
}

func loadRDBIfPresent(dir, dbFilename string, ks *keyspace.Keyspace, log *mlog.Logger) error {
	path := dir + string(os.PathSeparator) + dbFilename
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Info("no RDB snapshot found, starting with an empty keyspace", mctx.Annotated("path", path))
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	if err := rdb.Load(f, ks); err != nil {
		return err
	}
	log.Info("loaded RDB snapshot", mctx.Annotated("path", path))
	return nil
}
