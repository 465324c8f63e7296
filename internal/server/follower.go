package server

import (
	"github.com/redikeep/redikeep/internal/command"
	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/replication"
)

// RunFollower dials addr as this server's leader, ingests the bootstrap RDB
// it sends, then streams and applies propagated writes through d until the
// connection drops or apply fails. It blocks; call it on its own goroutine.
func RunFollower(addr, listeningPort string, ks *keyspace.Keyspace, d *command.Dispatcher, log *mlog.Logger) error {
	if log == nil {
		log = mlog.Null
	}

	f, err := replication.Dial(addr, listeningPort, ks, log)
	if err != nil {
		return err
	}
	defer f.Close()

	d.FollowerOffset = f.MasterOffset

	applyCtx := &command.ConnCtx{ID: f, Writer: discard{}, Suppress: true}
	apply := func(args [][]byte) error {
		return d.Dispatch(applyCtx, args, nil)
	}

	log.Info("streaming from master", mctx.Annotated("addr", addr))
	return f.Stream(apply)
}

// discard is an io.Writer that drops every write; a follower applying
// streamed writes never produces a client-visible reply (command.ConnCtx's
// Suppress already guarantees Dispatch never calls Write, but a concrete
// Writer is still required to construct ConnCtx).
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
