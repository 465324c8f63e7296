// Package command implements the RESP command dispatcher: it uppercases
// the verb of each framed request and routes it to a role-gated handler,
// propagating successful leader-side writes and suppressing replies for
// writes applied from a replication stream.
package command

import (
	"io"
	"strings"
	"time"

	"github.com/redikeep/redikeep/internal/blocking"
	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/replication"
	"github.com/redikeep/redikeep/internal/resp"
)

// Config is the subset of server configuration CONFIG GET exposes.
type Config struct {
	Dir        string
	DBFilename string
}

// Dispatcher wires the keyspace, replication, and blocking-coordinator
// state a command handler needs, and owns the verb table.
type Dispatcher struct {
	KS       *keyspace.Keyspace
	Blocking *blocking.Coordinator
	Leader   *replication.Leader // nil if this server is a follower
	ReplID   string
	Config   Config

	// FollowerOffset reports master_offset when this server is a
	// follower; nil when it is a leader.
	FollowerOffset func() int64

	// Now is the wall-clock source SET PX and XADD's full-auto form use;
	// defaults to time.Now, overridable for tests.
	Now func() time.Time

	Log *mlog.Logger

	handlers map[string]handlerFunc
}

func (d *Dispatcher) nowMS() int64 {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return now().UnixMilli()
}

// ConnCtx is the per-connection state a Dispatch call needs: where to
// write replies, whether this connection has become a replica's
// propagation channel, and the identity Blocking uses to key its waiter
// table.
type ConnCtx struct {
	ID     interface{}
	Writer io.Writer

	// Suppress marks a dispatch as applying a write streamed from a
	// master; per 4.E, such writes produce no reply on the client
	// channel.
	Suppress bool

	// Replica handle assigned once this connection completes PSYNC;
	// zero means "not yet a replica".
	ReplicaHandle int
	ListeningPort string
	Capa          []string
}

type handlerFunc func(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error

// New returns a Dispatcher with its verb table installed.
func New() *Dispatcher {
	d := &Dispatcher{}
	d.handlers = map[string]handlerFunc{
		"PING":     handlePing,
		"ECHO":     handleEcho,
		"SET":      handleSet,
		"GET":      handleGet,
		"TYPE":     handleType,
		"KEYS":     handleKeys,
		"CONFIG":   handleConfig,
		"INFO":     handleInfo,
		"REPLCONF": handleReplConf,
		"PSYNC":    handlePSync,
		"WAIT":     handleWait,
		"XADD":     handleXAdd,
		"XRANGE":   handleXRange,
		"XREAD":    handleXRead,
	}
	if d.Log == nil {
		d.Log = mlog.Null
	}
	d.Now = time.Now
	return d
}

// Dispatch routes one framed request to its handler. raw is the exact
// byte range the parser consumed for this request, needed for
// propagation and for counting a WAIT request's own bytes toward the
// replication offset.
func (d *Dispatcher) Dispatch(ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) == 0 {
		return nil
	}

	verb := strings.ToUpper(string(args[0]))
	h, ok := d.handlers[verb]
	if !ok {
		return d.reply(ctx, resp.AppendError(nil, "ERR unknown command '"+verb+"'"))
	}

	return h(d, ctx, args, raw)
}

// reply writes b to ctx.Writer unless the dispatch is suppressed (a
// follower applying a streamed write).
func (d *Dispatcher) reply(ctx *ConnCtx, b []byte) error {
	if ctx.Suppress {
		return nil
	}
	_, err := ctx.Writer.Write(b)
	return err
}

// propagateIfLeader forwards raw to every attached replica when this
// server is a leader and the write did not arrive via a replication
// stream itself.
func (d *Dispatcher) propagateIfLeader(ctx *ConnCtx, raw []byte) {
	if d.Leader != nil && !ctx.Suppress {
		d.Leader.Propagate(raw)
	}
}

func handlePing(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	return d.reply(ctx, resp.AppendSimpleString(nil, "PONG"))
}

func handleEcho(d *Dispatcher, ctx *ConnCtx, args [][]byte, raw []byte) error {
	if len(args) != 2 {
		return d.reply(ctx, resp.AppendError(nil, "ERR wrong number of arguments for 'echo' command"))
	}
	return d.reply(ctx, resp.AppendBulkString(nil, args[1]))
}
